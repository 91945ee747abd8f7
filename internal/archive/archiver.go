// Package archive exports WhatsApp conversation transcripts to S3.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

var (
	// ErrDisabled is returned when no archive bucket is configured.
	ErrDisabled = errors.New("archive: disabled")
	// ErrEmptyConversation is returned when the conversation has no messages.
	ErrEmptyConversation = errors.New("archive: conversation has no messages")
)

// Archiver reads a conversation's full history and writes it to the archive.
type Archiver struct {
	messages store.MessageStore
	store    *Store
	logger   *logging.Logger
	now      func() time.Time
}

// NewArchiver constructs an Archiver. The archive may be disabled.
func NewArchiver(messages store.MessageStore, archive *Store, logger *logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{
		messages: messages,
		store:    archive,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether archiving is configured.
func (a *Archiver) Enabled() bool {
	return a != nil && a.store.Enabled()
}

// Archive exports the conversation keyed by phone. When scrub is set, e-mail
// addresses and phone numbers inside message bodies are masked.
func (a *Archiver) Archive(ctx context.Context, phone string, scrub bool) (ManifestEntry, error) {
	if !a.Enabled() {
		return ManifestEntry{}, ErrDisabled
	}

	history, err := a.messages.History(ctx, phone)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("archive: load history: %w", err)
	}
	if len(history) == 0 {
		return ManifestEntry{}, ErrEmptyConversation
	}

	record := BuildTranscript(phone, history, a.now())
	if scrub {
		record.redact()
	}
	return a.store.ArchiveTranscript(ctx, record)
}

// BuildTranscript converts an oldest-first history into a Transcript.
func BuildTranscript(phone string, history []store.Message, archivedAt time.Time) *Transcript {
	msgs := make([]Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, Message{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp})
	}

	hash := ConversationHash(phone)
	record := &Transcript{
		Version:        TranscriptVersion,
		ConversationID: hash[:16],
		PhoneHash:      hash,
		ArchivedAt:     archivedAt,
		MessageCount:   len(msgs),
		Outcome:        OutcomeUnanswered,
		Messages:       msgs,
	}
	if len(msgs) > 0 {
		record.StartedAt = msgs[0].Timestamp
		record.LastActivityAt = msgs[len(msgs)-1].Timestamp
		record.DurationSeconds = int(record.LastActivityAt.Sub(record.StartedAt).Seconds())
		if msgs[len(msgs)-1].Role != store.RoleUser {
			record.Outcome = OutcomeAnswered
		}
	}
	return record
}
