// Package store defines the document-store contract shared by the webhook,
// the tool executor, and the admin API, plus in-process backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable is returned when the store failed to initialize or
	// a backend query failed.
	ErrStoreUnavailable = errors.New("store: unavailable")
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("store: not found")
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Appointment statuses.
const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
)

// Well-known document locations.
const (
	CollectionSettings  = "settings"
	DocSettingsMain     = "main"
	CollectionKnowledge = "knowledge"
	DocKnowledgeCompany = "company"
)

// Message is one conversational turn. Messages are immutable once written.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Appointment is a booking record.
type Appointment struct {
	ID         string    `json:"id"`
	ClientName string    `json:"clientName"`
	Date       string    `json:"date"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ConversationSummary is a dashboard row for one conversation.
type ConversationSummary struct {
	ID           string    `json:"id"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}

// MessageStore is the append-only per-conversation message log.
type MessageStore interface {
	AppendMessage(ctx context.Context, conversationID string, msg Message) error
	// RecentMessages returns at most limit messages, most recent first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	// History returns every message, oldest first.
	History(ctx context.Context, conversationID string) ([]Message, error)
	ListConversations(ctx context.Context, limit int) ([]ConversationSummary, error)
	CountConversations(ctx context.Context) (int, error)
}

// DocumentStore holds single JSON documents such as settings/main.
type DocumentStore interface {
	GetDocument(ctx context.Context, collection, id string) (json.RawMessage, error)
	SetDocument(ctx context.Context, collection, id string, data json.RawMessage) error
}

// AppointmentStore holds bookings.
type AppointmentStore interface {
	FindAppointments(ctx context.Context, date, status string) ([]Appointment, error)
	CreateAppointment(ctx context.Context, appt Appointment) (Appointment, error)
	// ListAppointments returns newest bookings first.
	ListAppointments(ctx context.Context, limit int) ([]Appointment, error)
	CountAppointments(ctx context.Context) (int, error)
}

// Store is the full backend contract.
type Store interface {
	MessageStore
	DocumentStore
	AppointmentStore
	Ping(ctx context.Context) error
	Close()
}

// Reverse returns msgs in the opposite order without mutating the input.
func Reverse(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}
