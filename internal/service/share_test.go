package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/inkwell/internal/model"
)

func TestShare_SendsExactlyOneMessage(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewShareService(mailer, "noreply@localhost", testLogger())
	post := &model.Post{ID: "p1", Title: "Hello"}
	before := testutil.ToFloat64(SharesTotal.WithLabelValues("sent"))

	err := svc.Share(context.Background(), post, ShareInput{
		Title:       "Read this",
		Destination: "friend@example.com",
		Comment:     "Thought you'd like it.",
		PostURL:     "http://blog.test/blog/p1/",
		SenderEmail: "alice@example.com",
	})
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "Read this", msg.Subject)
	assert.Equal(t, "alice@example.com", msg.From)
	assert.Equal(t, []string{"friend@example.com"}, msg.To)
	assert.Equal(t, "Thought you'd like it. http://blog.test/blog/p1/", msg.Body)
	assert.Equal(t, before+1, testutil.ToFloat64(SharesTotal.WithLabelValues("sent")))
}

func TestShare_AnonymousUsesDefaultSender(t *testing.T) {
	svc := NewShareService(&fakeMailer{}, "noreply@localhost", testLogger())

	msg := svc.ComposeShare(ShareInput{Destination: "x@example.com", PostURL: "http://blog.test/blog/p1/"})

	assert.Equal(t, "noreply@localhost", msg.From)
	assert.True(t, strings.HasSuffix(msg.Body, " http://blog.test/blog/p1/"))
}

func TestShare_FailureIsReturned(t *testing.T) {
	mailer := &fakeMailer{sendErr: errors.New("smtp down")}
	svc := NewShareService(mailer, "noreply@localhost", testLogger())
	before := testutil.ToFloat64(SharesTotal.WithLabelValues("failed"))

	err := svc.Share(context.Background(), &model.Post{ID: "p1"}, ShareInput{Destination: "x@example.com"})

	require.Error(t, err)
	assert.ErrorContains(t, err, "smtp down")
	assert.Empty(t, mailer.sent)
	assert.Equal(t, before+1, testutil.ToFloat64(SharesTotal.WithLabelValues("failed")))
}
