package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

type sendGridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid delivers e-mail through the SendGrid v3 API.
type SendGrid struct {
	api    sendGridAPI
	from   Identity
	logger *logging.Logger
}

// NewSendGrid returns nil when apiKey is blank.
func NewSendGrid(apiKey string, from Identity, logger *logging.Logger) *SendGrid {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return newSendGrid(sendgrid.NewSendClient(apiKey), from, logger)
}

func newSendGrid(api sendGridAPI, from Identity, logger *logging.Logger) *SendGrid {
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGrid{api: api, from: from.normalized(), logger: logger}
}

func (s *SendGrid) Send(ctx context.Context, e Email) error {
	html := e.HTML
	if html == "" {
		html = e.Text
	}
	msg := mail.NewSingleEmail(
		mail.NewEmail(s.from.Name, s.from.Address),
		e.Subject,
		mail.NewEmail("", e.To),
		e.Text,
		html,
	)

	resp, err := s.api.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("notify: sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("notify: sendgrid status %d", resp.StatusCode)
	}
	s.logger.Info("email sent", "provider", "sendgrid", "to", e.To, "status", resp.StatusCode)
	return nil
}
