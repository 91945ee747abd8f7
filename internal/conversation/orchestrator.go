package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/lysandra-ai-platform/internal/settings"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// ErrMissingSender is returned when the inbound payload has no sender.
var ErrMissingSender = errors.New("conversation: missing sender")

// Apology is the fixed reply sent whenever a turn fails.
const Apology = "Lo siento, Lysandra está experimentando dificultades técnicas. Por favor intenta más tarde."

// HistoryWindow is the number of stored messages handed to the model.
const HistoryWindow = 10

const whatsappPrefix = "whatsapp:"

// ConversationKey strips the transport prefix from a sender identifier.
func ConversationKey(from string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(from), whatsappPrefix))
}

// SettingsLoader returns the current settings, falling back to defaults.
type SettingsLoader interface {
	Load(ctx context.Context) settings.Settings
}

// Converser is satisfied by Gateway.
type Converser interface {
	Converse(ctx context.Context, req ConverseRequest) (ConverseResult, error)
}

type Inbound struct {
	From string
	Body string
}

type Reply struct {
	ConversationID string
	Text           string
	// Apology is set when Text is the fixed apology.
	Apology bool
	Err     error
}

// Orchestrator runs one WhatsApp turn: persist, window, converse, persist.
// Concurrent turns for the same sender are not serialized.
type Orchestrator struct {
	messages store.MessageStore
	settings SettingsLoader
	gateway  Converser
	policy   ToolPolicy
	logger   *logging.Logger
	now      func() time.Time
}

// NewOrchestrator constructs the webhook orchestrator.
func NewOrchestrator(messages store.MessageStore, settings SettingsLoader, gateway Converser, policy ToolPolicy, logger *logging.Logger) *Orchestrator {
	if messages == nil || settings == nil || gateway == nil {
		panic("conversation: orchestrator dependencies required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		messages: messages,
		settings: settings,
		gateway:  gateway,
		policy:   policy,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle answers one inbound message. Only ErrMissingSender is returned as an
// error; every other failure yields the apology reply with Reply.Err set.
func (o *Orchestrator) Handle(ctx context.Context, in Inbound) (Reply, error) {
	key := ConversationKey(in.From)
	if key == "" {
		return Reply{}, ErrMissingSender
	}

	text, err := o.turn(ctx, key, in.Body)
	if err != nil {
		o.logger.Error("webhook turn failed", "conversation_id", key, "error", err)
		return Reply{ConversationID: key, Text: Apology, Apology: true, Err: err}, nil
	}
	return Reply{ConversationID: key, Text: text}, nil
}

func (o *Orchestrator) turn(ctx context.Context, key, body string) (string, error) {
	userMsg := store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleUser,
		Content:   body,
		Timestamp: o.now(),
	}
	if err := o.messages.AppendMessage(ctx, key, userMsg); err != nil {
		return "", fmt.Errorf("append user message: %w", err)
	}

	recent, err := o.messages.RecentMessages(ctx, key, HistoryWindow)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	history := windowHistory(store.Reverse(recent), userMsg.ID)

	cfg := o.settings.Load(ctx)
	result, err := o.gateway.Converse(ctx, ConverseRequest{
		SystemPrompt: cfg.SystemPrompt,
		ModelID:      cfg.AIModel,
		History:      history,
		Message:      body,
		Tools:        BookingTools(),
		Policy:       o.policy,
	})
	if err != nil {
		return "", err
	}

	reply := store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleAssistant,
		Content:   result.Text,
		Timestamp: o.now(),
	}
	if err := o.messages.AppendMessage(ctx, key, reply); err != nil {
		return "", fmt.Errorf("append assistant message: %w", err)
	}
	return result.Text, nil
}

// windowHistory converts the chronological window to chat history, leaving
// out the message being answered since it is sent as the new turn.
func windowHistory(window []store.Message, currentID string) []ChatMessage {
	out := make([]ChatMessage, 0, len(window))
	for _, msg := range window {
		if msg.ID == currentID {
			continue
		}
		out = append(out, ChatMessage{Role: coerceRole(msg.Role), Content: msg.Content})
	}
	return out
}
