package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lysandra-ai-platform/internal/bookings"
	"github.com/wolfman30/lysandra-ai-platform/internal/knowledge"
	"github.com/wolfman30/lysandra-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/lysandra-ai-platform/internal/settings"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
)

func newTestExecutor(t *testing.T) (*ToolExecutor, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	return NewToolExecutor(bookings.NewService(mem, nil, nil), knowledge.NewProvider(staticKnowledge{})), mem
}

func TestConverseTextOnly(t *testing.T) {
	model := &scriptedModel{turns: []ChatTurn{textTurn("¡Hola! ¿En qué te ayudo?")}}
	exec, _ := newTestExecutor(t)
	gw := NewGateway(model, exec, nil)

	res, err := gw.Converse(context.Background(), ConverseRequest{
		ModelID: "gemini-1.5-flash",
		History: []ChatMessage{{Role: ChatRoleUser, Content: "hola"}, {Role: ChatRoleAssistant, Content: "hola"}},
		Message: "Hola",
		Tools:   BookingTools(),
		Policy:  WebhookPolicy(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "¡Hola! ¿En qué te ayudo?", res.Text)
	assert.Equal(t, settings.DefaultModel, res.Model)
	assert.Equal(t, int32(15), res.Usage.TotalTokens)
	assert.Zero(t, res.Rounds)

	require.Len(t, model.configs, 1)
	cfg := model.configs[0]
	assert.Equal(t, settings.DefaultSystemPrompt, cfg.SystemPrompt)
	assert.Equal(t, settings.DefaultModel, cfg.ModelID)
	assert.Equal(t, int32(500), cfg.MaxOutputTokens)
	assert.Len(t, cfg.Tools, 2)
	assert.Len(t, cfg.History, 2)
	assert.Equal(t, []string{"Hola"}, model.sent)
}

func TestConverseWebhookResolvesFirstCallOnly(t *testing.T) {
	model := &scriptedModel{turns: []ChatTurn{
		callTurn(
			ToolCall{Name: ToolBookSlot, Args: map[string]any{"name": "Ana", "date": "2025-03-01T10:00:00Z", "type": "Demo"}},
			ToolCall{Name: ToolBookSlot, Args: map[string]any{"name": "Luis", "date": "2025-03-02T10:00:00Z", "type": "Demo"}},
		),
		textTurn("Listo, tu cita quedó agendada."),
	}}
	exec, mem := newTestExecutor(t)
	gw := NewGateway(model, exec, nil)

	res, err := gw.Converse(context.Background(), ConverseRequest{
		Message: "Agenda una demo",
		Tools:   BookingTools(),
		Policy:  WebhookPolicy(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	require.Len(t, res.ToolCalls, 1)
	require.Len(t, model.toolResults, 1)
	require.Len(t, model.toolResults[0], 1)
	assert.Equal(t, ToolBookSlot, model.toolResults[0][0].Name)
	assert.Equal(t, true, model.toolResults[0][0].Response["success"])
	assert.Equal(t, int32(25), res.Usage.TotalTokens)

	appts, err := mem.ListAppointments(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Ana", appts[0].ClientName)
}

func TestConverseWebhookSecondRequestIsNotResolved(t *testing.T) {
	model := &scriptedModel{turns: []ChatTurn{
		callTurn(ToolCall{Name: ToolCheckAvailability, Args: map[string]any{"date": "2025-03-01T10:00:00Z"}}),
		callTurn(ToolCall{Name: ToolBookSlot, Args: map[string]any{"name": "Ana", "date": "2025-03-01T10:00:00Z", "type": "Demo"}}),
	}}
	exec, mem := newTestExecutor(t)
	gw := NewGateway(model, exec, nil)

	_, err := gw.Converse(context.Background(), ConverseRequest{Message: "¿Hay espacio?", Tools: BookingTools(), Policy: WebhookPolicy(1)})
	require.ErrorIs(t, err, ErrModel)

	n, err := mem.CountAppointments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConverseConsoleLoopsUntilText(t *testing.T) {
	model := &scriptedModel{turns: []ChatTurn{
		callTurn(ToolCall{Name: ToolCheckAvailability, Args: map[string]any{"date": "2025-03-01T10:00:00Z"}}),
		callTurn(
			ToolCall{Name: ToolBookSlot, Args: map[string]any{"name": "Ana", "date": "2025-03-01T10:00:00Z", "type": "Demo"}},
			ToolCall{Name: ToolSearchKnowledgeBase, Args: map[string]any{"query": "servicios"}},
		),
		textTurn("Cita confirmada."),
	}}
	exec, _ := newTestExecutor(t)
	gw := NewGateway(model, exec, nil)

	res, err := gw.Converse(context.Background(), ConverseRequest{Message: "Agenda", Tools: ConsoleTools(), Policy: ConsolePolicy()})
	require.NoError(t, err)
	assert.Equal(t, "Cita confirmada.", res.Text)
	assert.Equal(t, 2, res.Rounds)
	assert.Len(t, res.ToolCalls, 3)
	require.Len(t, model.toolResults, 2)
	assert.Len(t, model.toolResults[1], 2)
}

func TestConverseConsoleRoundCap(t *testing.T) {
	call := ToolCall{Name: ToolCheckAvailability, Args: map[string]any{"date": "2025-03-01T10:00:00Z"}}
	turns := make([]ChatTurn, 0, consoleMaxToolRounds+1)
	for i := 0; i <= consoleMaxToolRounds; i++ {
		turns = append(turns, callTurn(call))
	}
	model := &scriptedModel{turns: turns}
	exec, _ := newTestExecutor(t)
	gw := NewGateway(model, exec, nil)

	res, err := gw.Converse(context.Background(), ConverseRequest{Message: "?", Tools: ConsoleTools(), Policy: ConsolePolicy()})
	require.ErrorIs(t, err, ErrModel)
	assert.Equal(t, consoleMaxToolRounds, res.Rounds)
}

func TestConverseUndeclaredTool(t *testing.T) {
	model := &scriptedModel{turns: []ChatTurn{
		callTurn(ToolCall{Name: ToolSearchKnowledgeBase, Args: map[string]any{"query": "precios"}}),
	}}
	exec, _ := newTestExecutor(t)
	gw := NewGateway(model, exec, nil)

	_, err := gw.Converse(context.Background(), ConverseRequest{Message: "precios", Tools: BookingTools(), Policy: WebhookPolicy(1)})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestConverseModelErrors(t *testing.T) {
	exec, _ := newTestExecutor(t)

	gw := NewGateway(&scriptedModel{errs: map[int]error{0: errors.New("quota exceeded")}}, exec, nil)
	_, err := gw.Converse(context.Background(), ConverseRequest{Message: "hola"})
	assert.ErrorIs(t, err, ErrModel)

	gw = NewGateway(&scriptedModel{startErr: errors.New("bad key")}, exec, nil)
	_, err = gw.Converse(context.Background(), ConverseRequest{Message: "hola"})
	assert.ErrorIs(t, err, ErrModel)

	gw = NewGateway(&scriptedModel{turns: []ChatTurn{{Text: "  "}}}, exec, nil)
	_, err = gw.Converse(context.Background(), ConverseRequest{Message: "hola"})
	assert.ErrorIs(t, err, ErrModel)
}

func TestConverseToolFailurePropagates(t *testing.T) {
	model := &scriptedModel{turns: []ChatTurn{
		callTurn(ToolCall{Name: ToolCheckAvailability, Args: map[string]any{"date": "2025-03-01T10:00:00Z"}}),
	}}
	exec := NewToolExecutor(bookings.NewService(store.Unavailable{}, nil, nil), nil)
	gw := NewGateway(model, exec, nil)

	_, err := gw.Converse(context.Background(), ConverseRequest{Message: "?", Tools: BookingTools(), Policy: WebhookPolicy(1)})
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}

func TestConverseWithoutPolicyDeclaresNoTools(t *testing.T) {
	model := &scriptedModel{turns: []ChatTurn{textTurn("hola")}}
	exec, _ := newTestExecutor(t)
	gw := NewGateway(model, exec, nil)

	_, err := gw.Converse(context.Background(), ConverseRequest{Message: "hola", Tools: BookingTools()})
	require.NoError(t, err)
	assert.Empty(t, model.configs[0].Tools)
}

func TestConverseRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	model := &scriptedModel{turns: []ChatTurn{
		callTurn(ToolCall{Name: ToolCheckAvailability, Args: map[string]any{"date": "2025-03-01T10:00:00Z"}}),
		textTurn("Disponible."),
	}}
	exec, _ := newTestExecutor(t)
	gw := NewGateway(model, exec, nil, WithMetrics(metrics.NewLLMMetrics(reg)))

	_, err := gw.Converse(context.Background(), ConverseRequest{Message: "?", Tools: BookingTools(), Policy: WebhookPolicy(1)})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names[metrics.LLMLatencyFamily])
	assert.True(t, names[metrics.LLMTokensFamily])
	assert.True(t, names[metrics.ToolCallsFamily])
}

func TestPolicies(t *testing.T) {
	assert.Equal(t, ToolPolicy{MaxRounds: 1, FirstCallOnly: true}, WebhookPolicy(0))
	assert.Equal(t, ToolPolicy{MaxRounds: 3, FirstCallOnly: true}, WebhookPolicy(3))
	assert.Equal(t, ToolPolicy{MaxRounds: consoleMaxToolRounds}, ConsolePolicy())
}
