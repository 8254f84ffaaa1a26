package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// PageSize is the fixed number of posts per list page.
const PageSize = 5

// LastPage is the ?page= value that jumps to the final page.
const LastPage = "last"

// NotOwnerMessage is returned (as apperror.Forbidden) when someone other
// than the owner tries to change a post.
const NotOwnerMessage = "You are not post owner"

type PostService struct {
	posts    repository.PostRepository
	tags     repository.TagRepository
	comments repository.CommentRepository
	logger   *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	tags repository.TagRepository,
	comments repository.CommentRepository,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		tags:     tags,
		comments: comments,
		logger:   logger,
	}
}

// PostInput is a validated post form. Tags are already split into names.
type PostInput struct {
	Title string
	Body  string
	Tags  []string
}

// ResolvePage turns the raw ?page= value into a 1-based page number.
//
//	""     → 1
//	"last" → totalPages
//	"N"    → N, if 1 ≤ N ≤ totalPages
//
// Anything else is apperror.NotFound. totalPages is never below 1, so
// page 1 of an empty list is always valid.
func ResolvePage(raw string, totalPages int) (int, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return 1, nil
	case LastPage:
		return totalPages, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > totalPages {
		return 0, apperror.NotFound("page", raw)
	}
	return n, nil
}

// List returns one page of all posts, newest first.
func (s *PostService) List(ctx context.Context, pageParam string) (model.Page[model.Post], error) {
	total, err := s.posts.CountPosts(ctx)
	if err != nil {
		return model.Page[model.Post]{}, fmt.Errorf("service/post: counting posts: %w", err)
	}

	number, err := ResolvePage(pageParam, model.TotalPages(total, PageSize))
	if err != nil {
		return model.Page[model.Post]{}, err
	}

	posts, err := s.posts.ListPosts(ctx, repository.ListOptions{
		Limit:  PageSize,
		Offset: (number - 1) * PageSize,
	})
	if err != nil {
		return model.Page[model.Post]{}, fmt.Errorf("service/post: listing page %d: %w", number, err)
	}
	return model.NewPage(posts, number, PageSize, total), nil
}

// ListByTag returns every post carrying the tag. Unpaginated.
func (s *PostService) ListByTag(ctx context.Context, tagID string) (*model.Tag, []model.Post, error) {
	tag, err := s.tags.GetTagByID(ctx, tagID)
	if err != nil {
		return nil, nil, fmt.Errorf("service/post: fetching tag %s: %w", tagID, err)
	}
	posts, err := s.posts.ListPostsByTag(ctx, tag.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("service/post: listing tag %s: %w", tagID, err)
	}
	return tag, posts, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/post: fetching post %s: %w", id, err)
	}
	return post, nil
}

// Detail is a post with its active comments.
type Detail struct {
	Post     *model.Post
	Comments []model.Comment
}

func (s *PostService) Detail(ctx context.Context, id string) (*Detail, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListCommentsByPost(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("service/post: comments of %s: %w", id, err)
	}
	return &Detail{Post: post, Comments: comments}, nil
}

// Create stores a new post owned by ownerID. The owner always comes from
// the session, never from submitted form data.
func (s *PostService) Create(ctx context.Context, ownerID string, in PostInput) (*model.Post, error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated()
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}

	post := &model.Post{
		Title:   strings.TrimSpace(in.Title),
		Slug:    model.Slugify(in.Title),
		Body:    in.Body,
		OwnerID: ownerID,
	}
	if err := s.posts.CreatePost(ctx, post, in.Tags); err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.InfoContext(ctx, "post created",
		slog.String("postID", post.ID),
		slog.String("ownerID", ownerID),
		slog.Int("tags", len(in.Tags)),
	)
	return post, nil
}

// AuthorizeOwner loads the post and checks that userID owns it.
// The same OwnerID check guards both update and delete.
func (s *PostService) AuthorizeOwner(ctx context.Context, postID, userID string) (*model.Post, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsOwnedBy(userID) {
		s.logger.WarnContext(ctx, "post ownership check failed",
			slog.String("postID", postID),
			slog.String("userID", userID),
		)
		return nil, apperror.Forbidden(NotOwnerMessage)
	}
	return post, nil
}

// Update replaces the title, body and tags of a post the user owns.
func (s *PostService) Update(ctx context.Context, postID, userID string, in PostInput) (*model.Post, error) {
	post, err := s.AuthorizeOwner(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}

	post.Title = strings.TrimSpace(in.Title)
	post.Slug = model.Slugify(in.Title)
	post.Body = in.Body
	if err := s.posts.UpdatePost(ctx, post, in.Tags); err != nil {
		return nil, fmt.Errorf("service/post: updating post %s: %w", postID, err)
	}

	s.logger.InfoContext(ctx, "post updated", slog.String("postID", postID))
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	if _, err := s.AuthorizeOwner(ctx, postID, userID); err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("service/post: deleting post %s: %w", postID, err)
	}
	s.logger.InfoContext(ctx, "post deleted", slog.String("postID", postID))
	return nil
}

// CommentInput is a validated comment form.
type CommentInput struct {
	Name  string
	Email string
	Body  string
}

// AddComment stores an active comment on the post. A missing post is
// apperror.NotFound.
func (s *PostService) AddComment(ctx context.Context, postID string, in CommentInput) (*model.Comment, error) {
	c := &model.Comment{
		PostID: postID,
		Name:   strings.TrimSpace(in.Name),
		Email:  strings.TrimSpace(in.Email),
		Body:   in.Body,
	}
	if err := s.comments.CreateComment(ctx, c); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/post: commenting on %s: %w", postID, err)
	}
	s.logger.InfoContext(ctx, "comment added",
		slog.String("postID", postID),
		slog.String("commentID", c.ID),
	)
	return c, nil
}

// Tags lists the tags in use, for the sidebar.
func (s *PostService) Tags(ctx context.Context) ([]model.Tag, error) {
	tags, err := s.tags.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing tags: %w", err)
	}
	return tags, nil
}
