package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sakif/inkwell/internal/mail"
	"github.com/sakif/inkwell/internal/model"
)

// SharesTotal counts share emails by outcome ("sent" or "failed").
var SharesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inkwell_post_shares_total",
	Help: "Share-by-email attempts, by outcome.",
}, []string{"outcome"})

// ShareService emails a link to a post.
type ShareService struct {
	mailer      mail.Mailer
	defaultFrom string
	logger      *slog.Logger
}

func NewShareService(mailer mail.Mailer, defaultFrom string, logger *slog.Logger) *ShareService {
	return &ShareService{mailer: mailer, defaultFrom: defaultFrom, logger: logger}
}

// ShareInput is a validated share form plus the request-derived bits the
// service can't know: the post's absolute URL and who is sending.
type ShareInput struct {
	Title       string
	Destination string
	Comment     string
	PostURL     string
	// SenderEmail is the logged-in user's address; "" falls back to the
	// configured default sender.
	SenderEmail string
}

// ComposeShare builds the message. The body is the comment followed by a
// space and the post URL.
func (s *ShareService) ComposeShare(in ShareInput) mail.Message {
	from := strings.TrimSpace(in.SenderEmail)
	if from == "" {
		from = s.defaultFrom
	}
	return mail.Message{
		From:    from,
		To:      []string{strings.TrimSpace(in.Destination)},
		Subject: in.Title,
		Body:    in.Comment + " " + in.PostURL,
	}
}

// Share sends exactly one message. There is no retry; a delivery failure
// is returned so the request fails visibly.
func (s *ShareService) Share(ctx context.Context, post *model.Post, in ShareInput) error {
	msg := s.ComposeShare(in)
	if err := s.mailer.Send(ctx, msg); err != nil {
		SharesTotal.WithLabelValues("failed").Inc()
		s.logger.ErrorContext(ctx, "sharing post failed",
			slog.String("postID", post.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/share: sending post %s: %w", post.ID, err)
	}

	SharesTotal.WithLabelValues("sent").Inc()
	s.logger.InfoContext(ctx, "post shared",
		slog.String("postID", post.ID),
		slog.String("from", msg.From),
	)
	return nil
}
