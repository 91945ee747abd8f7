package conversation

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiChatModelRequiresKey(t *testing.T) {
	_, err := NewGeminiChatModel(context.Background(), " ")
	require.Error(t, err)
}

func TestGeminiHistory(t *testing.T) {
	got := geminiHistory([]ChatMessage{
		{Role: ChatRoleUser, Content: "Hola"},
		{Role: ChatRoleAssistant, Content: "¡Hola!"},
		{Role: ChatRoleUser, Content: "   "},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, genai.Text("¡Hola!"), got[1].Parts[0])
}

func TestGeminiFunctions(t *testing.T) {
	decls := geminiFunctions(BookingTools())
	require.Len(t, decls, 2)
	book := decls[1]
	assert.Equal(t, "bookSlot", book.Name)
	assert.Equal(t, genai.TypeObject, book.Parameters.Type)
	assert.Equal(t, []string{"name", "date", "type"}, book.Parameters.Required)
	assert.Equal(t, genai.TypeString, book.Parameters.Properties["date"].Type)
}

func TestGeminiTurn(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("Revisando "),
				genai.FunctionCall{Name: "checkAvailability", Args: map[string]any{"date": "2025-03-01T10:00:00Z"}},
				genai.Text("disponibilidad"),
			}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 4, TotalTokenCount: 16},
	}
	turn, err := geminiTurn(resp)
	require.NoError(t, err)
	assert.Equal(t, "Revisando disponibilidad", turn.Text)
	require.Len(t, turn.ToolCalls, 1)
	assert.Equal(t, "checkAvailability", turn.ToolCalls[0].Name)
	assert.Equal(t, TokenUsage{InputTokens: 12, OutputTokens: 4, TotalTokens: 16}, turn.Usage)

	_, err = geminiTurn(&genai.GenerateContentResponse{})
	require.Error(t, err)
}
