package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	seq          int64
	messages     map[string][]storedMessage
	documents    map[string]json.RawMessage
	appointments []storedAppointment
}

type storedMessage struct {
	Message
	seq int64
}

type storedAppointment struct {
	Appointment
	seq int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:  make(map[string][]storedMessage),
		documents: make(map[string]json.RawMessage),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) AppendMessage(_ context.Context, conversationID string, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.messages[conversationID] = append(s.messages[conversationID], storedMessage{Message: msg, seq: s.seq})
	return nil
}

func (s *MemoryStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]Message, error) {
	s.mu.RLock()
	sorted := s.sortedLocked(conversationID)
	s.mu.RUnlock()

	newestFirst := Reverse(sorted)
	if limit >= 0 && len(newestFirst) > limit {
		newestFirst = newestFirst[:limit]
	}
	return newestFirst, nil
}

func (s *MemoryStore) History(_ context.Context, conversationID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(conversationID), nil
}

// sortedLocked orders by timestamp, then by insertion.
func (s *MemoryStore) sortedLocked(conversationID string) []Message {
	stored := append([]storedMessage(nil), s.messages[conversationID]...)
	sort.SliceStable(stored, func(i, j int) bool {
		if !stored[i].Timestamp.Equal(stored[j].Timestamp) {
			return stored[i].Timestamp.Before(stored[j].Timestamp)
		}
		return stored[i].seq < stored[j].seq
	})
	out := make([]Message, len(stored))
	for i, m := range stored {
		out[i] = m.Message
	}
	return out
}

func (s *MemoryStore) ListConversations(_ context.Context, limit int) ([]ConversationSummary, error) {
	s.mu.RLock()
	summaries := make([]ConversationSummary, 0, len(s.messages))
	for id := range s.messages {
		sorted := s.sortedLocked(id)
		summary := ConversationSummary{ID: id}
		if n := len(sorted); n > 0 {
			last := sorted[n-1]
			summary.LastMessage = &last
			summary.LastActivity = last.Timestamp
		}
		summaries = append(summaries, summary)
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].LastActivity.Equal(summaries[j].LastActivity) {
			return summaries[i].LastActivity.After(summaries[j].LastActivity)
		}
		return summaries[i].ID < summaries[j].ID
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (s *MemoryStore) CountConversations(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages), nil
}

func (s *MemoryStore) GetDocument(_ context.Context, collection, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentKey(collection, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), doc...), nil
}

func (s *MemoryStore) SetDocument(_ context.Context, collection, id string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[documentKey(collection, id)] = append(json.RawMessage(nil), data...)
	return nil
}

func (s *MemoryStore) FindAppointments(_ context.Context, date, status string) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, appt := range s.appointments {
		if appt.Date == date && (status == "" || appt.Status == status) {
			out = append(out, appt.Appointment)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateAppointment(_ context.Context, appt Appointment) (Appointment, error) {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.appointments = append(s.appointments, storedAppointment{Appointment: appt, seq: s.seq})
	return appt, nil
}

func (s *MemoryStore) ListAppointments(_ context.Context, limit int) ([]Appointment, error) {
	s.mu.RLock()
	stored := append([]storedAppointment(nil), s.appointments...)
	s.mu.RUnlock()

	sort.SliceStable(stored, func(i, j int) bool {
		if !stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].CreatedAt.After(stored[j].CreatedAt)
		}
		return stored[i].seq > stored[j].seq
	})
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}
	out := make([]Appointment, len(stored))
	for i, a := range stored {
		out[i] = a.Appointment
	}
	return out, nil
}

func (s *MemoryStore) CountAppointments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.appointments), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() {}

func documentKey(collection, id string) string {
	return collection + "/" + id
}
