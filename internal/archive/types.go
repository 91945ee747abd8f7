package archive

import "time"

// TranscriptVersion is stamped on every archived transcript.
const TranscriptVersion = "1.0"

// Outcomes derived from the final turn of a transcript.
const (
	OutcomeAnswered   = "answered"
	OutcomeUnanswered = "unanswered"
)

// Transcript is the archived form of one WhatsApp conversation. The phone
// number never appears in clear text.
type Transcript struct {
	Version         string    `json:"version"`
	ConversationID  string    `json:"conversation_id"`
	PhoneHash       string    `json:"phone_hash"`
	ArchivedAt      time.Time `json:"archived_at"`
	StartedAt       time.Time `json:"started_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	DurationSeconds int       `json:"duration_seconds"`
	MessageCount    int       `json:"message_count"`
	Outcome         string    `json:"outcome"`
	Scrubbed        bool      `json:"scrubbed"`
	Redactions      int       `json:"redactions"`
	Messages        []Message `json:"messages"`
}

// Message is a single conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	ConversationID string `json:"conversation_id"`
	S3Key          string `json:"s3_key"`
	ArchivedAt     string `json:"archived_at"`
	MessageCount   int    `json:"message_count"`
	Outcome        string `json:"outcome"`
}
