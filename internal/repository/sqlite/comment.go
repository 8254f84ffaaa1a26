package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

var _ repository.CommentRepository = (*DB)(nil)

// CreateComment stores a comment. New comments are active.
// A comment on a post that doesn't exist is reported as NotFound (the
// foreign key rejects it).
func (db *DB) CreateComment(ctx context.Context, c *model.Comment) error {
	c.ID = xid.New().String()
	c.CreatedAt = time.Now()
	c.Active = true

	var exists int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE id = ?`, c.PostID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("sqlite: checking post %s: %w", c.PostID, err)
	}
	if exists == 0 {
		return apperror.NotFound("post", c.PostID)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, name, email, body, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.PostID,
		c.Name,
		c.Email,
		c.Body,
		c.Active,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on post %s: %w", c.PostID, err)
	}
	return nil
}

func (db *DB) ListCommentsByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, post_id, name, email, body, active, created_at
		 FROM comments
		 WHERE post_id = ? AND active = 1
		 ORDER BY created_at ASC, id ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Name, &c.Email, &c.Body, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
