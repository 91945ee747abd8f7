package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/wolfman30/lysandra-ai-platform/internal/knowledge"
)

// scriptedModel replays turns in order across Send and SendToolResults.
type scriptedModel struct {
	mu          sync.Mutex
	turns       []ChatTurn
	errs        map[int]error
	startErr    error
	configs     []ChatSessionConfig
	sent        []string
	toolResults [][]ToolResult
	calls       int
}

func (m *scriptedModel) StartChat(_ context.Context, cfg ChatSessionConfig) (ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.configs = append(m.configs, cfg)
	return &scriptedSession{model: m}, nil
}

func (m *scriptedModel) next() (ChatTurn, error) {
	i := m.calls
	m.calls++
	if err, ok := m.errs[i]; ok {
		return ChatTurn{}, err
	}
	if i >= len(m.turns) {
		return ChatTurn{}, errors.New("script exhausted")
	}
	return m.turns[i], nil
}

type scriptedSession struct {
	model *scriptedModel
}

func (s *scriptedSession) Send(_ context.Context, text string) (ChatTurn, error) {
	s.model.mu.Lock()
	defer s.model.mu.Unlock()
	s.model.sent = append(s.model.sent, text)
	return s.model.next()
}

func (s *scriptedSession) SendToolResults(_ context.Context, results []ToolResult) (ChatTurn, error) {
	s.model.mu.Lock()
	defer s.model.mu.Unlock()
	s.model.toolResults = append(s.model.toolResults, results)
	return s.model.next()
}

// staticKnowledge serves the bundled company record.
type staticKnowledge struct{}

func (staticKnowledge) Get(context.Context) knowledge.Company {
	return knowledge.Default()
}

func textTurn(text string) ChatTurn {
	return ChatTurn{Text: text, FinishReason: "STOP", Usage: TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
}

func callTurn(calls ...ToolCall) ChatTurn {
	return ChatTurn{ToolCalls: calls, FinishReason: "STOP", Usage: TokenUsage{InputTokens: 8, OutputTokens: 2, TotalTokens: 10}}
}

// recordingConverser captures requests and returns a fixed result.
type recordingConverser struct {
	mu       sync.Mutex
	requests []ConverseRequest
	result   ConverseResult
	err      error
}

func (c *recordingConverser) Converse(_ context.Context, req ConverseRequest) (ConverseResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return ConverseResult{Model: req.ModelID}, c.err
	}
	return c.result, nil
}
