package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Placeholders written over redacted spans.
const (
	EmailPlaceholder = "[correo]"
	PhonePlaceholder = "[teléfono]"
)

var (
	emailPattern = regexp.MustCompile(`[\w.%+\-]+@[\w\-]+(\.[\w\-]+)*\.[a-zA-Z]{2,}`)
	// International numbers, optionally behind the whatsapp: prefix, then
	// ten-digit Mexican locals and bracketed US-style numbers.
	phonePattern = regexp.MustCompile(`(whatsapp:)?\+\d[\d\s().-]{7,}\d|\(?\d{2,3}\)?[\s.-]?\d{3,4}[\s.-]?\d{4}`)
)

// ConversationHash identifies a conversation without its phone number. The
// whatsapp: prefix is ignored so webhook and dashboard keys hash alike.
func ConversationHash(conversationID string) string {
	key := strings.TrimPrefix(strings.TrimSpace(conversationID), "whatsapp:")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Redact masks e-mail addresses and phone numbers in text and reports how
// many spans were replaced. Names and dates are left alone.
func Redact(text string) (string, int) {
	n := 0
	count := func(placeholder string) func(string) string {
		return func(string) string {
			n++
			return placeholder
		}
	}
	text = emailPattern.ReplaceAllStringFunc(text, count(EmailPlaceholder))
	text = phonePattern.ReplaceAllStringFunc(text, count(PhonePlaceholder))
	return text, n
}

// redact masks every message body and records the total on t.
func (t *Transcript) redact() {
	for i := range t.Messages {
		var n int
		t.Messages[i].Content, n = Redact(t.Messages[i].Content)
		t.Redactions += n
	}
	t.Scrubbed = true
}
