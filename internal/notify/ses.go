package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES delivers e-mail through Amazon SES v2.
type SES struct {
	api    sesAPI
	from   Identity
	logger *logging.Logger
}

// NewSES returns nil when client is nil.
func NewSES(client *sesv2.Client, from Identity, logger *logging.Logger) *SES {
	if client == nil {
		return nil
	}
	return newSES(client, from, logger)
}

func newSES(api sesAPI, from Identity, logger *logging.Logger) *SES {
	if logger == nil {
		logger = logging.Default()
	}
	return &SES{api: api, from: from.normalized(), logger: logger}
}

func (s *SES) Send(ctx context.Context, e Email) error {
	body := &types.Body{Text: utf8Content(e.Text)}
	if e.HTML != "" {
		body.Html = utf8Content(e.HTML)
	}
	out, err := s.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from.String()),
		Destination:      &types.Destination{ToAddresses: []string{e.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{Subject: utf8Content(e.Subject), Body: body},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: ses: %w", err)
	}
	s.logger.Info("email sent", "provider", "ses", "to", e.To, "message_id", aws.ToString(out.MessageId))
	return nil
}

func utf8Content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}
