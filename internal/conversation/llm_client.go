package conversation

import "context"

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one prior turn handed to the model as history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32 `json:"inputTokens"`
	OutputTokens int32 `json:"outputTokens"`
	TotalTokens  int32 `json:"totalTokens"`
}

func (u TokenUsage) add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
	}
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the structured value returned to the model for a ToolCall.
type ToolResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ToolParameter is a string parameter of a declared tool.
type ToolParameter struct {
	Name        string
	Description string
	Required    bool
}

// ToolDeclaration describes a function the model may call.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}

// ChatTurn is one model response inside a chat session.
type ChatTurn struct {
	Text         string
	ToolCalls    []ToolCall
	Usage        TokenUsage
	FinishReason string
}

// ChatSession is a stateful exchange with the model. Tool results are sent
// back on the same session so the model sees its own call.
type ChatSession interface {
	Send(ctx context.Context, text string) (ChatTurn, error)
	SendToolResults(ctx context.Context, results []ToolResult) (ChatTurn, error)
}

type ChatSessionConfig struct {
	ModelID         string
	SystemPrompt    string
	History         []ChatMessage
	Tools           []ToolDeclaration
	MaxOutputTokens int32
}

// ChatModel opens chat sessions against a hosted model.
type ChatModel interface {
	StartChat(ctx context.Context, cfg ChatSessionConfig) (ChatSession, error)
}
