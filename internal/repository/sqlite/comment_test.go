package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
)

func TestCommentsOldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, "post")

	for _, body := range []string{"first", "second"} {
		c := &model.Comment{PostID: post.ID, Name: "reader", Email: "r@example.com", Body: body}
		if err := db.CreateComment(ctx, c); err != nil {
			t.Fatalf("CreateComment(%s) error = %v", body, err)
		}
		if !c.Active {
			t.Error("new comment should be active")
		}
	}

	comments, err := db.ListCommentsByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListCommentsByPost() error = %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("len = %d, want 2", len(comments))
	}
	if comments[0].Body != "first" || comments[1].Body != "second" {
		t.Errorf("order = [%s %s], want [first second]", comments[0].Body, comments[1].Body)
	}
}

func TestCreateComment_UnknownPost(t *testing.T) {
	db := newTestDB(t)
	c := &model.Comment{PostID: "nope", Name: "n", Email: "n@example.com", Body: "b"}
	if err := db.CreateComment(context.Background(), c); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("CreateComment() error = %v, want ErrNotFound", err)
	}
}

func TestTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, "post", "Web Dev", "go")

	tags, err := db.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	// ORDER BY name is byte order, so "Web Dev" sorts before "go".
	if len(tags) != 2 || tags[0].Name != "Web Dev" {
		t.Fatalf("ListTags() = %v", tags)
	}

	for _, tag := range post.Tags {
		got, err := db.GetTagByID(ctx, tag.ID)
		if err != nil {
			t.Fatalf("GetTagByID(%s) error = %v", tag.ID, err)
		}
		if got.Name == "Web Dev" && got.Slug != "web-dev" {
			t.Errorf("Slug = %q, want %q", got.Slug, "web-dev")
		}
	}

	if _, err := db.GetTagByID(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetTagByID(missing) error = %v, want ErrNotFound", err)
	}
}
