package store

import (
	"context"
	"encoding/json"
)

// Unavailable is the Store used when no backend credentials are configured.
// Every operation fails with ErrStoreUnavailable so callers can degrade.
type Unavailable struct {
	Reason string
}

var _ Store = Unavailable{}

func (Unavailable) AppendMessage(context.Context, string, Message) error {
	return ErrStoreUnavailable
}

func (Unavailable) RecentMessages(context.Context, string, int) ([]Message, error) {
	return nil, ErrStoreUnavailable
}

func (Unavailable) History(context.Context, string) ([]Message, error) {
	return nil, ErrStoreUnavailable
}

func (Unavailable) ListConversations(context.Context, int) ([]ConversationSummary, error) {
	return nil, ErrStoreUnavailable
}

func (Unavailable) CountConversations(context.Context) (int, error) {
	return 0, ErrStoreUnavailable
}

func (Unavailable) GetDocument(context.Context, string, string) (json.RawMessage, error) {
	return nil, ErrStoreUnavailable
}

func (Unavailable) SetDocument(context.Context, string, string, json.RawMessage) error {
	return ErrStoreUnavailable
}

func (Unavailable) FindAppointments(context.Context, string, string) ([]Appointment, error) {
	return nil, ErrStoreUnavailable
}

func (Unavailable) CreateAppointment(context.Context, Appointment) (Appointment, error) {
	return Appointment{}, ErrStoreUnavailable
}

func (Unavailable) ListAppointments(context.Context, int) ([]Appointment, error) {
	return nil, ErrStoreUnavailable
}

func (Unavailable) CountAppointments(context.Context) (int, error) {
	return 0, ErrStoreUnavailable
}

func (Unavailable) Ping(context.Context) error { return ErrStoreUnavailable }

func (Unavailable) Close() {}
