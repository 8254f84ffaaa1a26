// Package mail sends outgoing email.
//
// Services depend on the Mailer interface only. main picks the
// implementation: SendGridMailer when SENDGRID_API_KEY is set, LogMailer
// (writes the message to the log instead of sending it) otherwise.
package mail

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrNoRecipient is returned when a Message has no To address.
var ErrNoRecipient = errors.New("mail: message has no recipient")

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipient
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return ErrNoRecipient
		}
	}
	if m.From == "" {
		return errors.New("mail: message has no sender")
	}
	return nil
}

// Mailer delivers a message or reports why it couldn't.
// Send does not retry; a failure is returned to the caller as-is.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer "sends" by logging the message at info level.
// It is the development default.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "email (not sent, log mailer)",
		slog.String("from", msg.From),
		slog.String("to", strings.Join(msg.To, ", ")),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}
