// Package repository declares the storage interfaces the service layer
// depends on. The only implementation lives in repository/sqlite; tests in
// the service package use in-memory fakes.
//
// Every method takes a context.Context so an aborted HTTP request cancels
// its query. Lookups of a single record return apperror.NotFound when the
// row doesn't exist, and writes that collide with a UNIQUE column return
// apperror.Conflict.
package repository

import (
	"context"

	"github.com/sakif/inkwell/internal/model"
)

// ListOptions is a LIMIT/OFFSET window.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores accounts together with their profiles.
//
// Users and profiles are always written together: registration creates both
// rows and profile editing updates both rows, each inside one transaction.
type UserRepository interface {
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error
	UpdateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// EmailTaken reports whether another user (not exceptUserID) already
	// uses email. Pass "" as exceptUserID to check against everyone.
	EmailTaken(ctx context.Context, email, exceptUserID string) (bool, error)
	CountUsers(ctx context.Context) (int, error)
}

type ProfileRepository interface {
	GetProfileByUserID(ctx context.Context, userID string) (*model.Profile, error)
}

// PostRepository stores posts and their tag links.
//
// tagNames passed to CreatePost/UpdatePost replace the post's tag set;
// names that don't exist yet are created in the same transaction.
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post, tagNames []string) error
	UpdatePost(ctx context.Context, post *model.Post, tagNames []string) error
	DeletePost(ctx context.Context, id string) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error)
	CountPosts(ctx context.Context) (int, error)
	ListPostsByTag(ctx context.Context, tagID string) ([]model.Post, error)
	ListPostsByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]model.Post, error)
}

type TagRepository interface {
	GetTagByID(ctx context.Context, id string) (*model.Tag, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	// ListCommentsByPost returns the active comments of a post, oldest first.
	ListCommentsByPost(ctx context.Context, postID string) ([]model.Comment, error)
}
