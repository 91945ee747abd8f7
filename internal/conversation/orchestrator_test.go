package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lysandra-ai-platform/internal/bookings"
	"github.com/wolfman30/lysandra-ai-platform/internal/settings"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
)

func newTestOrchestrator(mem store.Store, conv Converser) *Orchestrator {
	return NewOrchestrator(mem, settings.NewService(mem, nil), conv, WebhookPolicy(1), nil)
}

func TestConversationKey(t *testing.T) {
	assert.Equal(t, "+15550001111", ConversationKey("whatsapp:+15550001111"))
	assert.Equal(t, "+15550001111", ConversationKey(" +15550001111 "))
}

func TestHandleSuccess(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	conv := &recordingConverser{result: ConverseResult{Text: "¡Hola! Soy Lysandra."}}
	o := newTestOrchestrator(mem, conv)

	reply, err := o.Handle(ctx, Inbound{From: "whatsapp:+15550001111", Body: "Hola"})
	require.NoError(t, err)
	assert.False(t, reply.Apology)
	assert.Equal(t, "¡Hola! Soy Lysandra.", reply.Text)
	assert.Equal(t, "+15550001111", reply.ConversationID)

	require.Len(t, conv.requests, 1)
	req := conv.requests[0]
	assert.Empty(t, req.History)
	assert.Equal(t, "Hola", req.Message)
	assert.Equal(t, settings.DefaultSystemPrompt, req.SystemPrompt)
	assert.Equal(t, settings.DefaultModel, req.ModelID)
	assert.Len(t, req.Tools, 2)
	assert.Equal(t, WebhookPolicy(1), req.Policy)

	history, err := mem.History(ctx, "+15550001111")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, store.RoleUser, history[0].Role)
	assert.Equal(t, "Hola", history[0].Content)
	assert.Equal(t, store.RoleAssistant, history[1].Role)
	assert.Equal(t, "¡Hola! Soy Lysandra.", history[1].Content)
}

func TestHandleMissingSender(t *testing.T) {
	mem := store.NewMemoryStore()
	conv := &recordingConverser{}
	o := newTestOrchestrator(mem, conv)

	_, err := o.Handle(context.Background(), Inbound{Body: "Hola"})
	require.ErrorIs(t, err, ErrMissingSender)
	assert.Empty(t, conv.requests)

	n, err := mem.CountConversations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleBarePrefixIsMissingSender(t *testing.T) {
	mem := store.NewMemoryStore()
	conv := &recordingConverser{}
	o := newTestOrchestrator(mem, conv)

	for _, from := range []string{"whatsapp:", " whatsapp:  "} {
		_, err := o.Handle(context.Background(), Inbound{From: from, Body: "Hola"})
		require.ErrorIs(t, err, ErrMissingSender, from)
	}
	assert.Empty(t, conv.requests)

	n, err := mem.CountConversations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleEmptyBodyIsAccepted(t *testing.T) {
	conv := &recordingConverser{result: ConverseResult{Text: "¿Sigues ahí?"}}
	o := newTestOrchestrator(store.NewMemoryStore(), conv)

	reply, err := o.Handle(context.Background(), Inbound{From: "whatsapp:+1", Body: ""})
	require.NoError(t, err)
	assert.False(t, reply.Apology)
	assert.Equal(t, "", conv.requests[0].Message)
}

func TestHandleModelFailureApologizes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	conv := &recordingConverser{err: fmt.Errorf("%w: quota", ErrModel)}
	o := newTestOrchestrator(mem, conv)

	reply, err := o.Handle(ctx, Inbound{From: "whatsapp:+15550001111", Body: "Hola"})
	require.NoError(t, err)
	assert.True(t, reply.Apology)
	assert.Equal(t, Apology, reply.Text)
	assert.ErrorIs(t, reply.Err, ErrModel)

	history, err := mem.History(ctx, "+15550001111")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, store.RoleUser, history[0].Role)
}

func TestHandleStoreUnavailableApologizes(t *testing.T) {
	conv := &recordingConverser{result: ConverseResult{Text: "hola"}}
	o := newTestOrchestrator(store.Unavailable{}, conv)

	reply, err := o.Handle(context.Background(), Inbound{From: "whatsapp:+1", Body: "Hola"})
	require.NoError(t, err)
	assert.True(t, reply.Apology)
	assert.ErrorIs(t, reply.Err, store.ErrStoreUnavailable)
	assert.Empty(t, conv.requests)
}

func TestHandleHistoryWindow(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, k := range []int{0, 3, 9, 14} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			mem := store.NewMemoryStore()
			for i := 0; i < k; i++ {
				role := store.RoleUser
				if i%2 == 1 {
					role = "model"
				}
				require.NoError(t, mem.AppendMessage(ctx, "+1", store.Message{
					Role:      role,
					Content:   fmt.Sprintf("m%d", i),
					Timestamp: base.Add(time.Duration(i) * time.Minute),
				}))
			}
			conv := &recordingConverser{result: ConverseResult{Text: "ok"}}
			o := newTestOrchestrator(mem, conv)
			o.now = func() time.Time { return base.Add(time.Hour) }

			_, err := o.Handle(ctx, Inbound{From: "whatsapp:+1", Body: "nuevo"})
			require.NoError(t, err)

			history := conv.requests[0].History
			want := k
			if want > HistoryWindow-1 {
				want = HistoryWindow - 1
			}
			require.Len(t, history, want)
			for i, msg := range history {
				idx := k - want + i
				assert.Equal(t, fmt.Sprintf("m%d", idx), msg.Content)
				if idx%2 == 1 {
					assert.Equal(t, ChatRoleAssistant, msg.Role)
				} else {
					assert.Equal(t, ChatRoleUser, msg.Role)
				}
			}
		})
	}
}

func TestHandleUsesSettings(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	raw, err := json.Marshal(map[string]any{"systemPrompt": "Eres un bot de pruebas.", "aiModel": "gemini-pro-latest"})
	require.NoError(t, err)
	require.NoError(t, mem.SetDocument(ctx, store.CollectionSettings, store.DocSettingsMain, raw))

	conv := &recordingConverser{result: ConverseResult{Text: "ok"}}
	o := newTestOrchestrator(mem, conv)
	_, err = o.Handle(ctx, Inbound{From: "whatsapp:+1", Body: "Hola"})
	require.NoError(t, err)

	assert.Equal(t, "Eres un bot de pruebas.", conv.requests[0].SystemPrompt)
	assert.Equal(t, "gemini-pro-latest", conv.requests[0].ModelID)
}

func TestHandleBookingRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	model := &scriptedModel{turns: []ChatTurn{
		callTurn(ToolCall{Name: ToolBookSlot, Args: map[string]any{"name": "Ana", "date": "2025-03-01T10:00:00Z", "type": "Demo"}}),
		textTurn("Tu demo quedó agendada para el 1 de marzo a las 10:00."),
	}}
	exec := NewToolExecutor(bookings.NewService(mem, nil, nil), nil)
	o := newTestOrchestrator(mem, NewGateway(model, exec, nil))

	reply, err := o.Handle(ctx, Inbound{From: "whatsapp:+15550001111", Body: "Quiero una demo el 1 de marzo a las 10"})
	require.NoError(t, err)
	assert.False(t, reply.Apology)
	assert.NotEmpty(t, reply.Text)

	appts, err := mem.FindAppointments(ctx, "2025-03-01T10:00:00Z", store.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Ana", appts[0].ClientName)
	assert.Equal(t, "Demo", appts[0].Type)
	assert.Len(t, model.toolResults, 1)
}

func TestHandleModelErrorIsNotRetried(t *testing.T) {
	model := &scriptedModel{errs: map[int]error{0: errors.New("deadline exceeded")}, turns: []ChatTurn{textTurn("never"), textTurn("never")}}
	exec, _ := newTestExecutor(t)
	o := newTestOrchestrator(store.NewMemoryStore(), NewGateway(model, exec, nil))

	reply, err := o.Handle(context.Background(), Inbound{From: "whatsapp:+1", Body: "Hola"})
	require.NoError(t, err)
	assert.True(t, reply.Apology)
	assert.Equal(t, 1, model.calls)
}
