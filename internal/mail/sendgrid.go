package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// sendClient is the part of *sendgrid.Client we use. Tests swap in a fake.
type sendClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	client   sendClient
	fromName string
	logger   *slog.Logger
}

// NewSendGridMailer creates a mailer for the given API key. fromName is the
// display name shown next to every sender address ("Inkwell").
func NewSendGridMailer(apiKey, fromName string, logger *slog.Logger) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		logger:   logger,
	}
}

// Send delivers msg. SendGrid answers 202 Accepted on success; any status
// of 300 or above is reported as an error along with the response body.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	email := sgmail.NewV3Mail()
	email.SetFrom(sgmail.NewEmail(m.fromName, msg.From))
	email.Subject = msg.Subject

	p := sgmail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}
	email.AddPersonalizations(p)
	email.AddContent(sgmail.NewContent("text/plain", msg.Body))

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("mail: sendgrid request: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail: sendgrid rejected message: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.logger.DebugContext(ctx, "email sent",
		slog.Int("status", resp.StatusCode),
		slog.Int("recipients", len(msg.To)),
	)
	return nil
}
