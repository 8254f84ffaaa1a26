package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/mail"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory UserRepository and ProfileRepository.
// Set the *Err fields to simulate a database failure.
type fakeUserRepo struct {
	users    map[string]*model.User
	profiles map[string]*model.Profile // keyed by user ID
	nextID   int

	createErr error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    make(map[string]*model.User),
		profiles: make(map[string]*model.Profile),
	}
}

func (f *fakeUserRepo) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeUserRepo) CreateWithProfile(_ context.Context, user *model.User, profile *model.Profile) error {
	if f.createErr != nil {
		return f.createErr
	}
	user.ID = f.id("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	profile.ID = f.id("profile")
	profile.UserID = user.ID

	u, p := *user, *profile
	f.users[u.ID] = &u
	f.profiles[u.ID] = &p
	return nil
}

func (f *fakeUserRepo) UpdateWithProfile(_ context.Context, user *model.User, profile *model.Profile) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	u, p := *user, *profile
	f.users[u.ID] = &u
	f.profiles[u.ID] = &p
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) EmailTaken(_ context.Context, email, exceptUserID string) (bool, error) {
	for _, u := range f.users {
		if u.ID != exceptUserID && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) CountUsers(context.Context) (int, error) {
	return len(f.users), nil
}

func (f *fakeUserRepo) GetProfileByUserID(_ context.Context, userID string) (*model.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile", userID)
	}
	copied := *p
	return &copied, nil
}

// fakeBlogRepo is an in-memory PostRepository, TagRepository and
// CommentRepository. posts is kept oldest first.
type fakeBlogRepo struct {
	posts    []*model.Post
	tags     map[string]*model.Tag // keyed by name
	comments []model.Comment
	nextID   int

	listErr error
}

func newFakeBlogRepo() *fakeBlogRepo {
	return &fakeBlogRepo{tags: make(map[string]*model.Tag)}
}

func (f *fakeBlogRepo) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeBlogRepo) setTags(post *model.Post, names []string) {
	post.Tags = nil
	for _, name := range names {
		tag, ok := f.tags[name]
		if !ok {
			tag = &model.Tag{ID: f.id("tag"), Name: name, Slug: model.Slugify(name)}
			f.tags[name] = tag
		}
		post.Tags = append(post.Tags, *tag)
	}
}

func (f *fakeBlogRepo) find(id string) (int, bool) {
	for i, p := range f.posts {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (f *fakeBlogRepo) CreatePost(_ context.Context, post *model.Post, tagNames []string) error {
	post.ID = f.id("post")
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	f.setTags(post, tagNames)
	copied := *post
	f.posts = append(f.posts, &copied)
	return nil
}

func (f *fakeBlogRepo) UpdatePost(_ context.Context, post *model.Post, tagNames []string) error {
	i, ok := f.find(post.ID)
	if !ok {
		return apperror.NotFound("post", post.ID)
	}
	f.setTags(post, tagNames)
	copied := *post
	f.posts[i] = &copied
	return nil
}

func (f *fakeBlogRepo) DeletePost(_ context.Context, id string) error {
	i, ok := f.find(id)
	if !ok {
		return apperror.NotFound("post", id)
	}
	f.posts = append(f.posts[:i], f.posts[i+1:]...)
	return nil
}

func (f *fakeBlogRepo) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	i, ok := f.find(id)
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	copied := *f.posts[i]
	return &copied, nil
}

// newestFirst returns copies of the posts matching keep, newest first.
func (f *fakeBlogRepo) newestFirst(keep func(*model.Post) bool) []model.Post {
	var out []model.Post
	for i := len(f.posts) - 1; i >= 0; i-- {
		if keep(f.posts[i]) {
			out = append(out, *f.posts[i])
		}
	}
	return out
}

func window(posts []model.Post, opts repository.ListOptions) []model.Post {
	if opts.Offset >= len(posts) {
		return nil
	}
	end := len(posts)
	if opts.Limit > 0 && opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return posts[opts.Offset:end]
}

func (f *fakeBlogRepo) ListPosts(_ context.Context, opts repository.ListOptions) ([]model.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	all := f.newestFirst(func(*model.Post) bool { return true })
	return window(all, opts), nil
}

func (f *fakeBlogRepo) CountPosts(context.Context) (int, error) {
	return len(f.posts), nil
}

func (f *fakeBlogRepo) ListPostsByTag(_ context.Context, tagID string) ([]model.Post, error) {
	return f.newestFirst(func(p *model.Post) bool {
		for _, t := range p.Tags {
			if t.ID == tagID {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeBlogRepo) ListPostsByOwner(_ context.Context, ownerID string, opts repository.ListOptions) ([]model.Post, error) {
	mine := f.newestFirst(func(p *model.Post) bool { return p.OwnerID == ownerID })
	return window(mine, opts), nil
}

func (f *fakeBlogRepo) GetTagByID(_ context.Context, id string) (*model.Tag, error) {
	for _, t := range f.tags {
		if t.ID == id {
			copied := *t
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("tag", id)
}

func (f *fakeBlogRepo) ListTags(context.Context) ([]model.Tag, error) {
	var out []model.Tag
	for _, t := range f.tags {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeBlogRepo) CreateComment(_ context.Context, c *model.Comment) error {
	if _, ok := f.find(c.PostID); !ok {
		return apperror.NotFound("post", c.PostID)
	}
	c.ID = f.id("comment")
	c.Active = true
	c.CreatedAt = time.Now()
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeBlogRepo) ListCommentsByPost(_ context.Context, postID string) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range f.comments {
		if c.PostID == postID && c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeMailer records every message and optionally fails.
type fakeMailer struct {
	sent    []mail.Message
	sendErr error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// newTestAccountService wires an AccountService to fakes.
// Cost 4 is the bcrypt minimum, which keeps the tests fast.
func newTestAccountService(t *testing.T, users *fakeUserRepo, blog *fakeBlogRepo) *AccountService {
	t.Helper()
	return NewAccountService(users, users, blog, newTestTokenService(t), auth.NewPasswordServiceForTest(4), testLogger())
}

func newTestPostService(blog *fakeBlogRepo) *PostService {
	return NewPostService(blog, blog, blog, testLogger())
}

// Compile-time checks that the fakes satisfy the interfaces.
var (
	_ repository.UserRepository    = (*fakeUserRepo)(nil)
	_ repository.ProfileRepository = (*fakeUserRepo)(nil)
	_ repository.PostRepository    = (*fakeBlogRepo)(nil)
	_ repository.TagRepository     = (*fakeBlogRepo)(nil)
	_ repository.CommentRepository = (*fakeBlogRepo)(nil)
)
