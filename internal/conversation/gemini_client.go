package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiChatModel implements ChatModel using Google's Gemini API.
type GeminiChatModel struct {
	client *genai.Client
}

// NewGeminiChatModel creates a new Gemini chat model client.
func NewGeminiChatModel(ctx context.Context, apiKey string) (*GeminiChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}
	return &GeminiChatModel{client: client}, nil
}

// StartChat opens a chat session with history, system instruction and tools.
func (c *GeminiChatModel) StartChat(_ context.Context, cfg ChatSessionConfig) (ChatSession, error) {
	if c.client == nil {
		return nil, errors.New("conversation: gemini client not configured")
	}
	model := c.client.GenerativeModel(cfg.ModelID)
	if cfg.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(cfg.MaxOutputTokens)
	}
	if strings.TrimSpace(cfg.SystemPrompt) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(cfg.SystemPrompt))
	}
	if len(cfg.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: geminiFunctions(cfg.Tools)}}
	}

	cs := model.StartChat()
	cs.History = geminiHistory(cfg.History)
	return &geminiSession{cs: cs}, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiChatModel) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

type geminiSession struct {
	cs *genai.ChatSession
}

func (s *geminiSession) Send(ctx context.Context, text string) (ChatTurn, error) {
	resp, err := s.cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return ChatTurn{}, fmt.Errorf("conversation: gemini send failed: %w", err)
	}
	return geminiTurn(resp)
}

func (s *geminiSession) SendToolResults(ctx context.Context, results []ToolResult) (ChatTurn, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{Name: r.Name, Response: r.Response})
	}
	resp, err := s.cs.SendMessage(ctx, parts...)
	if err != nil {
		return ChatTurn{}, fmt.Errorf("conversation: gemini tool response failed: %w", err)
	}
	return geminiTurn(resp)
}

func geminiFunctions(tools []ToolDeclaration) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(tool.Parameters)),
		}
		for _, p := range tool.Parameters {
			schema.Properties[p.Name] = &genai.Schema{Type: genai.TypeString, Description: p.Description}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schema,
		})
	}
	return out
}

// geminiHistory maps assistant turns to the "model" role and skips empty turns.
func geminiHistory(history []ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "user"
		if msg.Role == ChatRoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}
	return out
}

func geminiTurn(resp *genai.GenerateContentResponse) (ChatTurn, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return ChatTurn{}, errors.New("conversation: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]

	turn := ChatTurn{FinishReason: candidate.FinishReason.String()}
	if candidate.Content != nil {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			switch p := part.(type) {
			case genai.Text:
				text.WriteString(string(p))
			case genai.FunctionCall:
				turn.ToolCalls = append(turn.ToolCalls, ToolCall{Name: p.Name, Args: p.Args})
			}
		}
		turn.Text = strings.TrimSpace(text.String())
	}

	if resp.UsageMetadata != nil {
		turn.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return turn, nil
}
