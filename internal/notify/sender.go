// Package notify e-mails the support inbox about appointments booked by the
// assistant.
package notify

import (
	"context"
	"net/mail"
	"strings"

	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

const defaultSenderName = "Lysandra"

// Sender delivers one e-mail.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Email is a single outbound message. Text is required; HTML is optional.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Identity is the From address.
type Identity struct {
	Name    string
	Address string
}

func (id Identity) normalized() Identity {
	id.Name = strings.TrimSpace(id.Name)
	if id.Name == "" {
		id.Name = defaultSenderName
	}
	id.Address = strings.TrimSpace(id.Address)
	return id
}

// String renders the identity as an RFC 5322 mailbox.
func (id Identity) String() string {
	return (&mail.Address{Name: id.Name, Address: id.Address}).String()
}

// LogSender writes e-mails to the log instead of delivering them. It is
// used when no provider is configured.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, e Email) error {
	s.logger.Info("email not delivered: no provider configured", "to", e.To, "subject", e.Subject)
	return nil
}
