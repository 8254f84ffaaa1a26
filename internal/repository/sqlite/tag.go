package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

var _ repository.TagRepository = (*DB)(nil)

func (db *DB) GetTagByID(ctx context.Context, id string) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, slug FROM tags WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %s: %w", id, err)
	}
	return &t, nil
}

// ListTags returns the tags that are attached to at least one post, by name.
func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT t.id, t.name, t.slug
		 FROM tags t
		 JOIN post_tags pt ON pt.tag_id = t.id
		 ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}

// getOrCreateTag looks a tag up by name inside tx and inserts it if missing.
func getOrCreateTag(ctx context.Context, tx *sql.Tx, name string) (*model.Tag, error) {
	var t model.Tag
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, slug FROM tags WHERE name = ?`, name,
	).Scan(&t.ID, &t.Name, &t.Slug)
	if err == nil {
		return &t, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("looking up tag %q: %w", name, err)
	}

	t = model.Tag{ID: xid.New().String(), Name: name, Slug: model.Slugify(name)}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tags (id, name, slug) VALUES (?, ?, ?)`,
		t.ID, t.Name, t.Slug,
	); err != nil {
		return nil, fmt.Errorf("creating tag %q: %w", name, err)
	}
	return &t, nil
}
