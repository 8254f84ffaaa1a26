package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

// Every post query joins users so Post.Owner (the username) is filled in.
const postSelect = `
	SELECT p.id, p.title, p.slug, p.body, p.owner_id, u.username, p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.id = p.owner_id`

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// CreatePost inserts a post and links it to tagNames, creating any tag that
// doesn't exist yet. Post and links are written in one transaction.
func (db *DB) CreatePost(ctx context.Context, post *model.Post, tagNames []string) error {
	now := time.Now()
	post.ID = xid.New().String()
	post.CreatedAt = now
	post.UpdatedAt = now

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO posts (id, title, slug, body, owner_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			post.ID,
			post.Title,
			post.Slug,
			post.Body,
			post.OwnerID,
			post.CreatedAt,
			post.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting post: %w", err)
		}
		tags, err := setPostTags(ctx, tx, post.ID, tagNames)
		if err != nil {
			return err
		}
		post.Tags = tags
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

// UpdatePost saves title, slug and body and replaces the tag set.
// OwnerID and CreatedAt are never written after creation.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post, tagNames []string) error {
	post.UpdatedAt = time.Now()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE posts SET title = ?, slug = ?, body = ?, updated_at = ?
			 WHERE id = ?`,
			post.Title,
			post.Slug,
			post.Body,
			post.UpdatedAt,
			post.ID,
		)
		if err != nil {
			return fmt.Errorf("updating post: %w", err)
		}
		if err := expectOneRow(res, "post", post.ID); err != nil {
			return err
		}
		tags, err := setPostTags(ctx, tx, post.ID, tagNames)
		if err != nil {
			return err
		}
		post.Tags = tags
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	return nil
}

// DeletePost removes a post. Comments and tag links go with it (ON DELETE
// CASCADE); the tags themselves stay.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	return expectOneRow(res, "post", id)
}

func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	posts := []model.Post{*p}
	if err := db.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// ListPosts returns one window of posts, newest first.
func (db *DB) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := clampWindow(opts)
	return db.queryPosts(ctx,
		postSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

func (db *DB) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// ListPostsByTag returns every post carrying the tag, newest first.
// The caller is expected to have checked the tag exists; an unknown tag
// simply yields an empty slice here.
func (db *DB) ListPostsByTag(ctx context.Context, tagID string) ([]model.Post, error) {
	return db.queryPosts(ctx,
		postSelect+`
		JOIN post_tags pt ON pt.post_id = p.id
		WHERE pt.tag_id = ?
		ORDER BY p.created_at DESC, p.id DESC`,
		tagID,
	)
}

func (db *DB) ListPostsByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := clampWindow(opts)
	return db.queryPosts(ctx,
		postSelect+` WHERE p.owner_id = ? ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
}

// queryPosts runs a post SELECT and then loads the tags of the result.
//
// The rows are fully read and closed BEFORE the tag query runs. With a
// single-connection pool (":memory:") a second query while rows are open
// would wait for a connection that never comes back.
func (db *DB) queryPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}

	posts := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	rows.Close()

	if err := db.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachTags loads the tags of all posts with one query and sets Post.Tags.
func (db *DB) attachTags(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]any, len(posts))
	index := make(map[string]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		index[p.ID] = i
		posts[i].Tags = []model.Tag{}
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT pt.post_id, t.id, t.name, t.slug
		 FROM post_tags pt
		 JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.post_id IN (`+placeholders(len(ids))+`)
		 ORDER BY t.name`,
		ids...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading post tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			postID string
			t      model.Tag
		)
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug); err != nil {
			return fmt.Errorf("sqlite: scanning post tag: %w", err)
		}
		if i, ok := index[postID]; ok {
			posts[i].Tags = append(posts[i].Tags, t)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating post tags: %w", err)
	}
	return nil
}

// setPostTags replaces the tag links of a post inside tx and returns the
// resulting tags in input order. Duplicate names are linked once.
func setPostTags(ctx context.Context, tx *sql.Tx, postID string, names []string) ([]model.Tag, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return nil, fmt.Errorf("clearing post tags: %w", err)
	}

	tags := make([]model.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := getOrCreateTag(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`,
			postID, tag.ID,
		); err != nil {
			return nil, fmt.Errorf("linking tag %q: %w", name, err)
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

func scanPost(row rowScanner) (*model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Body,
		&p.OwnerID,
		&p.Owner,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// clampWindow applies the default and maximum page sizes.
func clampWindow(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
