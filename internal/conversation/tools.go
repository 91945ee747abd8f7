package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/lysandra-ai-platform/internal/bookings"
	"github.com/wolfman30/lysandra-ai-platform/internal/knowledge"
)

// ErrUnknownTool is returned when the model calls a tool outside the declared set.
var ErrUnknownTool = errors.New("conversation: unknown tool")

const (
	ToolCheckAvailability   = "checkAvailability"
	ToolBookSlot            = "bookSlot"
	ToolSearchKnowledgeBase = "searchKnowledgeBase"
)

var (
	checkAvailabilityTool = ToolDeclaration{
		Name:        ToolCheckAvailability,
		Description: "Checks if a specific date and time is available for an appointment.",
		Parameters: []ToolParameter{
			{Name: "date", Description: "The date and time in ISO 8601 format (e.g., 2023-10-25T10:00:00Z).", Required: true},
		},
	}
	bookSlotTool = ToolDeclaration{
		Name:        ToolBookSlot,
		Description: "Books an appointment for a client.",
		Parameters: []ToolParameter{
			{Name: "name", Description: "The client's name.", Required: true},
			{Name: "date", Description: "The date and time in ISO 8601 format.", Required: true},
			{Name: "type", Description: "The type of appointment (e.g., Consultoría, Soporte, Demo).", Required: true},
		},
	}
	searchKnowledgeBaseTool = ToolDeclaration{
		Name:        ToolSearchKnowledgeBase,
		Description: "Searches the CoreAura knowledge base for company information: services, pricing, contact details, technologies, projects and fiscal data.",
		Parameters: []ToolParameter{
			{Name: "query", Description: "The search terms, in the user's language.", Required: true},
		},
	}
)

// BookingTools is the two-tool set declared on the WhatsApp webhook path.
func BookingTools() []ToolDeclaration {
	return []ToolDeclaration{checkAvailabilityTool, bookSlotTool}
}

// ConsoleTools adds knowledge search to the booking tools.
func ConsoleTools() []ToolDeclaration {
	return []ToolDeclaration{checkAvailabilityTool, bookSlotTool, searchKnowledgeBaseTool}
}

// ToolRunner executes a single tool call and returns the structured result.
type ToolRunner interface {
	Execute(ctx context.Context, call ToolCall) (map[string]any, error)
}

// BookingService is the slice of bookings.Service the tools need.
type BookingService interface {
	CheckAvailability(ctx context.Context, date string) (bookings.Availability, error)
	Book(ctx context.Context, name, date, apptType string) (bookings.Confirmation, error)
}

// IndexProvider hands out the current knowledge index.
type IndexProvider interface {
	Index(ctx context.Context) *knowledge.Index
}

// ToolExecutor dispatches tool calls to the bookings service and the
// knowledge index.
type ToolExecutor struct {
	bookings  BookingService
	knowledge IndexProvider
}

// NewToolExecutor constructs a tool executor. knowledge may be nil when
// only the booking tools are declared.
func NewToolExecutor(bookings BookingService, knowledge IndexProvider) *ToolExecutor {
	return &ToolExecutor{bookings: bookings, knowledge: knowledge}
}

// Execute runs call. Names outside the known tools fail with ErrUnknownTool.
func (e *ToolExecutor) Execute(ctx context.Context, call ToolCall) (map[string]any, error) {
	switch call.Name {
	case ToolCheckAvailability:
		res, err := e.bookings.CheckAvailability(ctx, stringArg(call.Args, "date"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"available": res.Available, "message": res.Message}, nil

	case ToolBookSlot:
		res, err := e.bookings.Book(ctx, stringArg(call.Args, "name"), stringArg(call.Args, "date"), stringArg(call.Args, "type"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": res.Success, "appointmentId": res.AppointmentID, "message": res.Message}, nil

	case ToolSearchKnowledgeBase:
		if e.knowledge == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
		}
		entries := e.knowledge.Index(ctx).Search(stringArg(call.Args, "query"))
		results := make([]any, 0, len(entries))
		for _, entry := range entries {
			results = append(results, map[string]any{"category": entry.Category, "content": entry.Content})
		}
		return map[string]any{"results": results, "count": len(results)}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
