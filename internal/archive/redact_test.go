package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationHashIgnoresTransportPrefix(t *testing.T) {
	plain := ConversationHash("+5215512345678")

	assert.Len(t, plain, 64)
	assert.Equal(t, plain, ConversationHash("whatsapp:+5215512345678"))
	assert.Equal(t, plain, ConversationHash(" +5215512345678 "))
	assert.NotEqual(t, plain, ConversationHash("+15551234567"))
}

func TestRedact(t *testing.T) {
	cases := map[string]struct {
		in    string
		want  string
		count int
	}{
		"email":            {"escríbeme a juan.perez@coreaura.com.mx por favor", "escríbeme a [correo] por favor", 1},
		"mx international": {"mi número es +52 1 55 1234 5678", "mi número es [teléfono]", 1},
		"whatsapp handle":  {"desde whatsapp:+5215512345678", "desde [teléfono]", 1},
		"local":            {"llámame al 55 1234 5678", "llámame al [teléfono]", 1},
		"both":             {"ana@example.com o (330) 333-2654", "[correo] o [teléfono]", 2},
		"iso date kept":    {"cita el 2025-03-01T10:00:00Z", "cita el 2025-03-01T10:00:00Z", 0},
		"name kept":        {"Me llamo Ana López", "Me llamo Ana López", 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, n := Redact(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.count, n)
		})
	}
}

func TestTranscriptRedact(t *testing.T) {
	record := &Transcript{Messages: []Message{
		{Role: "user", Content: "mi correo es ana@example.com", Timestamp: time.Now()},
		{Role: "assistant", Content: "¡Gracias!", Timestamp: time.Now()},
	}}
	record.redact()

	assert.True(t, record.Scrubbed)
	assert.Equal(t, 1, record.Redactions)
	assert.Equal(t, "mi correo es [correo]", record.Messages[0].Content)
	assert.Equal(t, "¡Gracias!", record.Messages[1].Content)
}
