package conversation

import (
	"context"
	"strings"

	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

const consoleFallbackError = "Error al procesar el mensaje. Revisa la consola o las credenciales."

type ConsoleRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

type ConsoleReply struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	// Diagnostics, omitted by the admin API.
	ToolCalls []ToolCall `json:"-"`
	Usage     TokenUsage `json:"-"`
	Model     string     `json:"-"`
}

// Console sends operator test messages through the gateway with the
// knowledge-enhanced prompt. Nothing is persisted.
type Console struct {
	gateway  Converser
	settings SettingsLoader
	logger   *logging.Logger
}

// NewConsole constructs a test console.
func NewConsole(gateway Converser, settings SettingsLoader, logger *logging.Logger) *Console {
	if gateway == nil || settings == nil {
		panic("conversation: console dependencies required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Console{gateway: gateway, settings: settings, logger: logger}
}

// Send runs one console exchange. Failures are reported in the reply text.
func (c *Console) Send(ctx context.Context, req ConsoleRequest) ConsoleReply {
	cfg := c.settings.Load(ctx)

	history := make([]ChatMessage, 0, len(req.History))
	for _, h := range req.History {
		history = append(history, ChatMessage{Role: coerceRole(h.Role), Content: h.Content})
	}

	c.logger.Info("console message", "model", cfg.AIModel, "history", len(history))
	result, err := c.gateway.Converse(ctx, ConverseRequest{
		SystemPrompt: EnhancedPrompt(cfg.SystemPrompt),
		ModelID:      cfg.AIModel,
		History:      history,
		Message:      req.Message,
		Tools:        ConsoleTools(),
		Policy:       ConsolePolicy(),
	})
	if err != nil {
		text := strings.TrimSpace(err.Error())
		if text == "" {
			text = consoleFallbackError
		}
		return ConsoleReply{Success: false, Text: text, ToolCalls: result.ToolCalls, Model: result.Model}
	}
	return ConsoleReply{
		Success:   true,
		Text:      result.Text,
		ToolCalls: result.ToolCalls,
		Usage:     result.Usage,
		Model:     result.Model,
	}
}
