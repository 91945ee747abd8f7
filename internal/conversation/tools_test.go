package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lysandra-ai-platform/internal/bookings"
	"github.com/wolfman30/lysandra-ai-platform/internal/knowledge"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
)

func TestToolDeclarations(t *testing.T) {
	booking := BookingTools()
	require.Len(t, booking, 2)
	assert.Equal(t, ToolCheckAvailability, booking[0].Name)
	assert.Equal(t, ToolBookSlot, booking[1].Name)
	for _, p := range booking[1].Parameters {
		assert.True(t, p.Required, p.Name)
	}

	console := ConsoleTools()
	require.Len(t, console, 3)
	assert.Equal(t, ToolSearchKnowledgeBase, console[2].Name)
}

func TestExecuteCheckAvailability(t *testing.T) {
	ctx := context.Background()
	exec, mem := newTestExecutor(t)

	res, err := exec.Execute(ctx, ToolCall{Name: ToolCheckAvailability, Args: map[string]any{"date": "2025-03-01T10:00:00Z"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"available": true, "message": "Slot is available."}, res)

	_, err = mem.CreateAppointment(ctx, store.Appointment{ClientName: "Ana", Date: "2025-03-01T10:00:00Z", Status: store.StatusConfirmed})
	require.NoError(t, err)
	res, err = exec.Execute(ctx, ToolCall{Name: ToolCheckAvailability, Args: map[string]any{"date": "2025-03-01T10:00:00Z"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"available": false, "message": "Slot is already taken."}, res)
}

func TestExecuteBookSlot(t *testing.T) {
	ctx := context.Background()
	exec, mem := newTestExecutor(t)

	res, err := exec.Execute(ctx, ToolCall{Name: ToolBookSlot, Args: map[string]any{"name": "Ana", "date": "2025-03-01T10:00:00Z", "type": "Demo"}})
	require.NoError(t, err)
	assert.Equal(t, true, res["success"])
	assert.NotEmpty(t, res["appointmentId"])
	assert.Equal(t, "Appointment booked for Ana on 2025-03-01T10:00:00Z.", res["message"])

	appts, err := mem.FindAppointments(ctx, "2025-03-01T10:00:00Z", store.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Demo", appts[0].Type)
}

func TestExecuteSearchKnowledgeBase(t *testing.T) {
	exec, _ := newTestExecutor(t)

	res, err := exec.Execute(context.Background(), ToolCall{Name: ToolSearchKnowledgeBase, Args: map[string]any{"query": "rfc factura"}})
	require.NoError(t, err)
	count, ok := res["count"].(int)
	require.True(t, ok)
	require.Positive(t, count)
	results := res["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, knowledge.CategoryFiscal, first["category"])

	res, err = exec.Execute(context.Background(), ToolCall{Name: ToolSearchKnowledgeBase, Args: map[string]any{"query": "zz"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res["count"])
}

func TestExecuteUnknownTool(t *testing.T) {
	exec, _ := newTestExecutor(t)
	_, err := exec.Execute(context.Background(), ToolCall{Name: "cancelSlot"})
	assert.ErrorIs(t, err, ErrUnknownTool)

	noKnowledge := NewToolExecutor(bookings.NewService(store.NewMemoryStore(), nil, nil), nil)
	_, err = noKnowledge.Execute(context.Background(), ToolCall{Name: ToolSearchKnowledgeBase, Args: map[string]any{"query": "rfc"}})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestStringArg(t *testing.T) {
	args := map[string]any{"date": "2025-03-01", "n": 3.0, "nil": nil}
	assert.Equal(t, "2025-03-01", stringArg(args, "date"))
	assert.Equal(t, "3", stringArg(args, "n"))
	assert.Equal(t, "", stringArg(args, "nil"))
	assert.Equal(t, "", stringArg(args, "missing"))
	assert.Equal(t, "", stringArg(nil, "missing"))
}
