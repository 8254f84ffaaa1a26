// Package seed fills a database with demo users, posts, tags and comments.
// It is meant for development only.
//
// Everything goes through the service layer, so seeded data obeys the same
// rules as data entered through the forms: passwords are hashed, usernames
// are unique, every user gets a profile, and posts get slugs and tags.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "inkwell-demo"

// Options controls how much data Run creates.
type Options struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	// Seed makes the generated content reproducible. 0 picks a random seed.
	Seed int64
}

func DefaultOptions() Options {
	return Options{Users: 5, PostsPerUser: 4, CommentsPerPost: 3}
}

// Result summarises what Run created.
type Result struct {
	Users    []*model.User
	Posts    int
	Comments int
}

var tagPool = []string{
	"go", "databases", "web", "testing", "design", "travel", "books",
	"music", "open source", "cooking", "devops", "security",
}

// Seeder creates demo data through the services.
type Seeder struct {
	accounts *service.AccountService
	posts    *service.PostService
	logger   *slog.Logger
	faker    *gofakeit.Faker
}

func New(accounts *service.AccountService, posts *service.PostService, seed int64, logger *slog.Logger) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		accounts: accounts,
		posts:    posts,
		logger:   logger,
		faker:    gofakeit.New(seed),
	}
}

// Run creates opts.Users users, each with a filled-in profile and
// opts.PostsPerUser posts, and comments on every post.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}

	for i := 0; i < opts.Users; i++ {
		user, err := s.createUser(ctx)
		if err != nil {
			return res, err
		}
		res.Users = append(res.Users, user)

		for j := 0; j < opts.PostsPerUser; j++ {
			post, err := s.posts.Create(ctx, user.ID, s.postInput())
			if err != nil {
				return res, fmt.Errorf("seed: creating post: %w", err)
			}
			res.Posts++

			for k := 0; k < opts.CommentsPerPost; k++ {
				if _, err := s.posts.AddComment(ctx, post.ID, s.commentInput()); err != nil {
					return res, fmt.Errorf("seed: creating comment: %w", err)
				}
				res.Comments++
			}
		}
	}

	s.logger.InfoContext(ctx, "seed complete",
		slog.Int("users", len(res.Users)),
		slog.Int("posts", res.Posts),
		slog.Int("comments", res.Comments),
	)
	return res, nil
}

// createUser registers a fake user, retrying with a new name when the
// generated username is already taken.
func (s *Seeder) createUser(ctx context.Context) (*model.User, error) {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		first, last := s.faker.FirstName(), s.faker.LastName()
		username := strings.ToLower(first + "." + last)
		if i > 0 {
			username = fmt.Sprintf("%s%d", username, s.faker.Number(10, 9999))
		}

		user, err := s.accounts.Register(ctx, service.RegisterInput{
			Username:  username,
			FirstName: first,
			Email:     username + "@example.com",
			Password:  DemoPassword,
		})
		if errors.Is(err, apperror.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed: registering %q: %w", username, err)
		}

		birth := s.faker.DateRange(
			time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC),
		).Truncate(24 * time.Hour)
		if _, err := s.accounts.EditProfile(ctx, user.ID, service.ProfileInput{
			FirstName:   first,
			LastName:    last,
			Email:       user.Email,
			Bio:         s.faker.HipsterSentence(12),
			DateOfBirth: &birth,
		}); err != nil {
			return nil, fmt.Errorf("seed: profile of %q: %w", username, err)
		}

		s.logger.Debug("seeded user", slog.String("username", username))
		return user, nil
	}
	return nil, fmt.Errorf("seed: no free username after %d attempts", attempts)
}

func (s *Seeder) postInput() service.PostInput {
	title := strings.TrimSuffix(s.faker.Sentence(s.faker.Number(3, 8)), ".")

	paragraphs := make([]string, s.faker.Number(2, 5))
	for i := range paragraphs {
		paragraphs[i] = s.faker.Paragraph(1, s.faker.Number(3, 6), 12, " ")
	}

	seen := map[string]bool{}
	var tags []string
	for n := s.faker.Number(0, 3); len(tags) < n; {
		tag := s.faker.RandomString(tagPool)
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	return service.PostInput{
		Title: title,
		Body:  strings.Join(paragraphs, "\n\n"),
		Tags:  tags,
	}
}

func (s *Seeder) commentInput() service.CommentInput {
	return service.CommentInput{
		Name:  s.faker.Name(),
		Email: s.faker.Email(),
		Body:  s.faker.Sentence(s.faker.Number(4, 20)),
	}
}
