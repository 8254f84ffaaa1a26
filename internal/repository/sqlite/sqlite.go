// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the Go binary as a single file.
// A blog with a handful of writers and many readers is exactly its sweet spot,
// and tests can use ":memory:" for a throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of the SQLite C code. No CGo, no
// C compiler, cross-compilation just works.
//
// TABLES:
//
//	users ──1:1── profiles
//	  │
//	  └──1:N── posts ──N:M── tags   (through post_tags)
//	             │
//	             └──1:N── comments
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	// Importing the driver registers it with database/sql as "sqlite". The
	// package is also named here for its *Error type (constraint codes).
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/inkwell/internal/apperror"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface in internal/repository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the blog database at dbPath and migrates it.
//
// dbPath examples:
//   - "data/blog.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// IN-MEMORY DATABASES ARE PER CONNECTION:
	// Every new connection to ":memory:" gets its own empty database. Pinning
	// the pool to one connection keeps all queries on the same data.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// PRAGMAS ARE PER CONNECTION:
// database/sql opens connections on demand, and a PRAGMA run with
// conn.Exec only reaches whichever connection happened to execute it. The
// driver runs every _pragma in the DSN on each connection it opens, so they
// go there instead.
//
//   - foreign_keys: OFF by default in SQLite. Deleting a post relies on
//     ON DELETE CASCADE to drop its comments and tag links.
//   - busy_timeout: wait for a concurrent writer instead of failing with
//     SQLITE_BUSY.
//   - journal_mode=WAL: readers keep reading while a writer commits. It is
//     a property of the file, so it is skipped for ":memory:".
func dsn(dbPath string) string {
	pragmas := []string{"foreign_keys(1)", "busy_timeout(5000)"}
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + url.Values{"_pragma": pragmas}.Encode()
}

// newWithConn wraps an already-open pool without running migrations.
// Tests use it to put a sqlmock connection behind the repository.
func newWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close releases the pool. The server calls it on shutdown.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the blog schema. Every statement is IF NOT EXISTS, so it
// runs on every start against new and existing files alike.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email) WHERE email <> '';
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			bio           TEXT NOT NULL DEFAULT '',
			date_of_birth DATETIME,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	// Avatars came after the first profiles table shipped.
	if err := db.addColumnIfNotExists("profiles", "avatar", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding avatar to profiles: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			slug       TEXT NOT NULL DEFAULT '',
			body       TEXT NOT NULL DEFAULT '',
			owner_id   TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_owner_id ON posts(owner_id);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tags (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			slug TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS post_tags (
			post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			tag_id  TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (post_id, tag_id)
		);
		CREATE INDEX IF NOT EXISTS idx_post_tags_tag_id ON post_tags(tag_id);
	`)
	if err != nil {
		return fmt.Errorf("creating tags tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL,
			body       TEXT NOT NULL,
			active     INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	return nil
}

// addColumnIfNotExists is ALTER TABLE ADD COLUMN guarded by a
// pragma_table_info lookup, since SQLite has no ADD COLUMN IF NOT EXISTS.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// withTx runs fn inside a transaction. fn's error (or a failed commit)
// rolls everything back.
//
// TRANSACTIONS:
// Inside fn, every statement MUST go through tx, not db.conn. A query on
// db.conn would run on a different connection and not see the uncommitted
// rows (and with a single-connection pool it would block forever).
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		// Rollback's own error is secondary, the caller needs fn's.
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// uniqueViolation translates a UNIQUE constraint error into apperror.Conflict.
// Any other error is returned as nil so callers fall through to their own
// wrapping.
//
// SQLite reports the offending column in the message:
//
//	UNIQUE constraint failed: users.username
func uniqueViolation(err error, resource string) error {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) {
		return nil
	}
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return nil
	}
	field := "value"
	if _, after, ok := strings.Cut(se.Error(), "UNIQUE constraint failed: "); ok {
		col := after
		if _, c, ok := strings.Cut(after, "."); ok {
			col = c
		}
		// "users.email" may be followed by more detail, e.g. " (2067)"
		if i := strings.IndexAny(col, " ,("); i >= 0 {
			col = col[:i]
		}
		if col != "" {
			field = col
		}
	}
	return apperror.Conflict(resource, field)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
