// Package conversation drives one assistant exchange: the Gemini chat
// session, tool resolution, and the WhatsApp webhook turn around it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/lysandra-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/lysandra-ai-platform/internal/settings"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// ErrModel wraps every failure of the hosted model exchange.
var ErrModel = errors.New("conversation: model error")

const (
	defaultMaxOutputTokens int32 = 500
	consoleMaxToolRounds         = 8
)

// ToolPolicy bounds tool resolution inside one exchange.
type ToolPolicy struct {
	// MaxRounds is the number of tool round trips allowed. Zero disables tools.
	MaxRounds int
	// FirstCallOnly resolves only the first call of each round.
	FirstCallOnly bool
}

// WebhookPolicy resolves the first requested call once per inbound message.
func WebhookPolicy(rounds int) ToolPolicy {
	if rounds <= 0 {
		rounds = 1
	}
	return ToolPolicy{MaxRounds: rounds, FirstCallOnly: true}
}

// ConsolePolicy resolves every call until the model stops asking.
func ConsolePolicy() ToolPolicy {
	return ToolPolicy{MaxRounds: consoleMaxToolRounds}
}

type ConverseRequest struct {
	SystemPrompt string
	ModelID      string
	History      []ChatMessage
	Message      string
	Tools        []ToolDeclaration
	Policy       ToolPolicy
}

type ConverseResult struct {
	Text      string
	Model     string
	ToolCalls []ToolCall
	Usage     TokenUsage
	Rounds    int
}

// Gateway runs one model exchange with synchronous tool resolution.
type Gateway struct {
	model           ChatModel
	tools           ToolRunner
	metrics         *metrics.LLMMetrics
	logger          *logging.Logger
	maxOutputTokens int32
	timeout         time.Duration
}

type GatewayOption func(*Gateway)

// WithMetrics records latency, token usage and tool outcomes.
func WithMetrics(m *metrics.LLMMetrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// WithTimeout bounds the whole exchange, tool round trips included.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// NewGateway constructs a model gateway.
func NewGateway(model ChatModel, tools ToolRunner, logger *logging.Logger, opts ...GatewayOption) *Gateway {
	if model == nil {
		panic("conversation: chat model required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	g := &Gateway{
		model:           model,
		tools:           tools,
		logger:          logger,
		maxOutputTokens: defaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Converse sends req.Message and resolves tool calls according to req.Policy.
// Model failures are not retried.
func (g *Gateway) Converse(ctx context.Context, req ConverseRequest) (ConverseResult, error) {
	prompt := req.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = settings.DefaultSystemPrompt
	}
	modelID := settings.ResolveModel(req.ModelID)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := g.converse(ctx, modelID, prompt, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	g.metrics.ObserveTurn(modelID, status, time.Since(start).Seconds())
	g.metrics.ObserveTokens(modelID, result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.TotalTokens)
	if err != nil {
		g.logger.Error("model exchange failed", "model", modelID, "rounds", result.Rounds, "error", err)
		return result, err
	}
	g.logger.Debug("model exchange complete", "model", modelID, "rounds", result.Rounds, "tool_calls", len(result.ToolCalls), "total_tokens", result.Usage.TotalTokens)
	return result, nil
}

func (g *Gateway) converse(ctx context.Context, modelID, prompt string, req ConverseRequest) (ConverseResult, error) {
	result := ConverseResult{Model: modelID}

	tools := req.Tools
	if req.Policy.MaxRounds <= 0 || g.tools == nil {
		tools = nil
	}
	session, err := g.model.StartChat(ctx, ChatSessionConfig{
		ModelID:         modelID,
		SystemPrompt:    prompt,
		History:         req.History,
		Tools:           tools,
		MaxOutputTokens: g.maxOutputTokens,
	})
	if err != nil {
		return result, fmt.Errorf("%w: start chat: %w", ErrModel, err)
	}

	turn, err := session.Send(ctx, req.Message)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrModel, err)
	}
	result.Usage = result.Usage.add(turn.Usage)

	for len(turn.ToolCalls) > 0 && len(tools) > 0 && result.Rounds < req.Policy.MaxRounds {
		calls := turn.ToolCalls
		if req.Policy.FirstCallOnly {
			calls = calls[:1]
		}
		results := make([]ToolResult, 0, len(calls))
		for _, call := range calls {
			res, err := g.runTool(ctx, tools, call)
			result.ToolCalls = append(result.ToolCalls, call)
			if err != nil {
				return result, err
			}
			results = append(results, ToolResult{Name: call.Name, Response: res})
		}
		result.Rounds++

		turn, err = session.SendToolResults(ctx, results)
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrModel, err)
		}
		result.Usage = result.Usage.add(turn.Usage)
	}

	if strings.TrimSpace(turn.Text) == "" {
		return result, fmt.Errorf("%w: empty response (finish reason %q)", ErrModel, turn.FinishReason)
	}
	result.Text = turn.Text
	return result, nil
}

func (g *Gateway) runTool(ctx context.Context, declared []ToolDeclaration, call ToolCall) (map[string]any, error) {
	if !isDeclared(declared, call.Name) {
		g.metrics.ObserveToolCall(call.Name, "unknown")
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	res, err := g.tools.Execute(ctx, call)
	if err != nil {
		g.metrics.ObserveToolCall(call.Name, "error")
		return nil, fmt.Errorf("conversation: tool %s: %w", call.Name, err)
	}
	g.metrics.ObserveToolCall(call.Name, "ok")
	g.logger.Info("tool executed", "tool", call.Name)
	return res, nil
}

func isDeclared(declared []ToolDeclaration, name string) bool {
	for _, d := range declared {
		if d.Name == name {
			return true
		}
	}
	return false
}
