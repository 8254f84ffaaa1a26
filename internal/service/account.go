// Package service contains the business logic of the blog.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)       → parses forms, renders pages, sets cookies
//	Service (business)   → uniqueness, ownership, hashing, composing email
//	Repository (storage) → SQL
//
// Services take repository interfaces, not *sqlite.DB, so the tests in this
// package run against in-memory fakes. They never see an http.Request:
// inputs are plain structs, outputs are models or apperror values.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// DashboardPosts is how many of the user's own posts the dashboard lists.
const DashboardPosts = 5

// AccountService handles registration, login and profile editing.
type AccountService struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	posts     repository.PostRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	posts repository.PostRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		profiles:  profiles,
		posts:     posts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput is a validated registration form.
type RegisterInput struct {
	Username  string
	FirstName string
	Email     string
	Password  string
}

// Register creates a user and its empty profile.
//
// Uniqueness is checked up front so the form can show a friendly field
// error. The UNIQUE constraints in the database still catch the race where
// two people register the same name at once; that surfaces as the same
// apperror.Conflict.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if in.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	exists, err := s.users.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("service/account: checking username: %w", err)
	}
	if exists {
		return nil, apperror.Conflict("user", "username")
	}
	if in.Email != "" {
		taken, err := s.users.EmailTaken(ctx, in.Email, "")
		if err != nil {
			return nil, fmt.Errorf("service/account: checking email: %w", err)
		}
		if taken {
			return nil, apperror.Conflict("user", "email")
		}
	}

	hash, err := s.passwords.Hash(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperror.ValidationFailed("password", err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		FirstName:    strings.TrimSpace(in.FirstName),
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateWithProfile(ctx, user, &model.Profile{}); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: registering %q: %w", in.Username, err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// AuthResult bundles the user with a freshly issued session token, so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Authenticate checks a username/password pair and issues a session token.
// Unknown user and wrong password both return apperror.Unauthenticated with
// the same message.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/account: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.InfoContext(ctx, "failed login", slog.String("username", user.Username))
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/account: verifying password: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for user %s: %w", user.ID, err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// SessionTTL is how long an issued session token stays valid. The handler
// uses it as the cookie's Max-Age.
func (s *AccountService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

// GetUser returns the user for the given internal ID.
func (s *AccountService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.NotFound("user", id)
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching user %s: %w", id, err)
	}
	return user, nil
}

// Account is a user with their profile.
type Account struct {
	User    *model.User
	Profile *model.Profile
}

func (s *AccountService) GetAccount(ctx context.Context, userID string) (*Account, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching profile of %s: %w", userID, err)
	}
	return &Account{User: user, Profile: profile}, nil
}

// Dashboard is what the /accounts/ page shows.
type Dashboard struct {
	Account
	RecentPosts []model.Post
}

func (s *AccountService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	acct, err := s.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsByOwner(ctx, userID, repository.ListOptions{Limit: DashboardPosts})
	if err != nil {
		return nil, fmt.Errorf("service/account: recent posts of %s: %w", userID, err)
	}
	return &Dashboard{Account: *acct, RecentPosts: posts}, nil
}

// ProfileInput is a validated profile edit form.
//
// Avatar is the new relative media path, or "" to keep the current one.
type ProfileInput struct {
	FirstName   string
	LastName    string
	Email       string
	Bio         string
	DateOfBirth *time.Time
	Avatar      string
}

// EditProfile saves the user and profile fields together. It returns the
// avatar path that was replaced (so the caller can delete the old file), or
// "" if the avatar didn't change.
func (s *AccountService) EditProfile(ctx context.Context, userID string, in ProfileInput) (replacedAvatar string, err error) {
	acct, err := s.GetAccount(ctx, userID)
	if err != nil {
		return "", err
	}

	in.Email = strings.TrimSpace(in.Email)
	if in.Email != "" {
		taken, err := s.users.EmailTaken(ctx, in.Email, userID)
		if err != nil {
			return "", fmt.Errorf("service/account: checking email: %w", err)
		}
		if taken {
			return "", apperror.Conflict("user", "email")
		}
	}

	user, profile := acct.User, acct.Profile
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Email = in.Email
	profile.Bio = strings.TrimSpace(in.Bio)
	profile.DateOfBirth = in.DateOfBirth
	if in.Avatar != "" && in.Avatar != profile.Avatar {
		replacedAvatar = profile.Avatar
		profile.Avatar = in.Avatar
	}

	if err := s.users.UpdateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("service/account: updating profile of %s: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "profile updated", slog.String("userID", userID))
	return replacedAvatar, nil
}
