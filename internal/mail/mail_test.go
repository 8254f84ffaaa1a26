package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSendClient records what would have gone to SendGrid.
type fakeSendClient struct {
	sent   []*sgmail.SGMailV3
	status int
	err    error
}

func (f *fakeSendClient) SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, email)
	return &rest.Response{StatusCode: f.status, Body: `{"errors":[]}`}, nil
}

func newTestSendGrid(fake *fakeSendClient) *SendGridMailer {
	return &SendGridMailer{client: fake, fromName: "Inkwell", logger: discardLogger()}
}

func validMessage() Message {
	return Message{
		From:    "alice@example.com",
		To:      []string{"bob@example.com"},
		Subject: "Look at this",
		Body:    "thought you'd like it https://blog.example.com/blog/abc/",
	}
}

// =========================================================================
// SENDGRID
// =========================================================================

func TestSendGridMailer_Send(t *testing.T) {
	fake := &fakeSendClient{status: 202}
	m := newTestSendGrid(fake)

	require.NoError(t, m.Send(context.Background(), validMessage()))
	require.Len(t, fake.sent, 1)

	email := fake.sent[0]
	assert.Equal(t, "alice@example.com", email.From.Address)
	assert.Equal(t, "Inkwell", email.From.Name)
	assert.Equal(t, "Look at this", email.Subject)
	require.Len(t, email.Personalizations, 1)
	require.Len(t, email.Personalizations[0].To, 1)
	assert.Equal(t, "bob@example.com", email.Personalizations[0].To[0].Address)
	require.Len(t, email.Content, 1)
	assert.Equal(t, "text/plain", email.Content[0].Type)
	assert.Contains(t, email.Content[0].Value, "https://blog.example.com/blog/abc/")
}

func TestSendGridMailer_RejectedStatus(t *testing.T) {
	fake := &fakeSendClient{status: 401}
	err := newTestSendGrid(fake).Send(context.Background(), validMessage())
	assert.ErrorContains(t, err, "status 401")
}

func TestSendGridMailer_TransportError(t *testing.T) {
	fake := &fakeSendClient{err: errors.New("connection refused")}
	err := newTestSendGrid(fake).Send(context.Background(), validMessage())
	assert.ErrorContains(t, err, "connection refused")
}

func TestSendGridMailer_NoRecipient(t *testing.T) {
	fake := &fakeSendClient{status: 202}
	msg := validMessage()
	msg.To = nil

	err := newTestSendGrid(fake).Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Empty(t, fake.sent, "nothing goes out for an invalid message")
}

// =========================================================================
// LOG MAILER
// =========================================================================

func TestLogMailer_LogsMessage(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.Send(context.Background(), validMessage()))
	assert.Contains(t, buf.String(), "bob@example.com")
	assert.Contains(t, buf.String(), "Look at this")
}

func TestLogMailer_RejectsEmptyRecipient(t *testing.T) {
	msg := validMessage()
	msg.To = []string{" "}
	err := NewLogMailer(discardLogger()).Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrNoRecipient)
}
