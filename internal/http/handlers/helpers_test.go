package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lysandra-ai-platform/internal/archive"
	"github.com/wolfman30/lysandra-ai-platform/internal/conversation"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

var discard = logging.NewWithWriter(&bytes.Buffer{}, "error", "json")

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type fakeConsole struct {
	mu   sync.Mutex
	reqs []conversation.ConsoleRequest
}

func (f *fakeConsole) Send(_ context.Context, req conversation.ConsoleRequest) conversation.ConsoleReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return conversation.ConsoleReply{Success: true, Text: "eco: " + req.Message}
}

type fakeArchiver struct {
	entry archive.ManifestEntry
	err   error
	phone string
	scrub bool
}

func (f *fakeArchiver) Archive(_ context.Context, phone string, scrub bool) (archive.ManifestEntry, error) {
	f.phone, f.scrub = phone, scrub
	return f.entry, f.err
}
