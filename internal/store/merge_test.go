package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeJSON(t *testing.T) {
	base := json.RawMessage(`{"company":{"name":"CoreAura","tagline":"old"},"values":["a","b"],"team":{"size":"10"}}`)
	patch := json.RawMessage(`{"company":{"tagline":"new"},"values":["c"]}`)

	merged, err := MergeJSON(base, patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"company":{"name":"CoreAura","tagline":"new"},"values":["c"],"team":{"size":"10"}}`, string(merged))
}

func TestMergeJSON_EmptyBase(t *testing.T) {
	merged, err := MergeJSON(nil, json.RawMessage(`{"systemPrompt":"hola"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"systemPrompt":"hola"}`, string(merged))
}

func TestMergeJSON_RejectsNonObjectPatch(t *testing.T) {
	_, err := MergeJSON(json.RawMessage(`{}`), json.RawMessage(`["x"]`))
	assert.Error(t, err)

	_, err = MergeJSON(json.RawMessage(`{}`), json.RawMessage(`{`))
	assert.Error(t, err)
}
