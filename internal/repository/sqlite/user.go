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

// compile-time checks that *DB implements the account repositories
var (
	_ repository.UserRepository    = (*DB)(nil)
	_ repository.ProfileRepository = (*DB)(nil)
)

const userColumns = `id, username, first_name, last_name, email, password_hash, created_at, updated_at`

// CreateWithProfile inserts a user and its (usually empty) profile in one
// transaction. If the profile insert fails the user row is rolled back, so
// a User never exists without its Profile.
//
// Both structs are modified in place: IDs, UserID and timestamps are filled in.
func (db *DB) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	profile.ID = xid.New().String()
	profile.UserID = user.ID
	profile.UpdatedAt = now

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.Username,
			user.FirstName,
			user.LastName,
			user.Email,
			user.PasswordHash,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			if cerr := uniqueViolation(err, "user"); cerr != nil {
				return cerr
			}
			return fmt.Errorf("inserting user: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles (id, user_id, bio, date_of_birth, avatar, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			profile.ID,
			profile.UserID,
			profile.Bio,
			nullTime(profile.DateOfBirth),
			profile.Avatar,
			profile.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting profile: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return err
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}
	return nil
}

// UpdateWithProfile saves the editable user fields and the profile together.
// Username and password hash are not touched here.
func (db *DB) UpdateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	now := time.Now()
	user.UpdatedAt = now
	profile.UpdatedAt = now

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET first_name = ?, last_name = ?, email = ?, updated_at = ?
			 WHERE id = ?`,
			user.FirstName,
			user.LastName,
			user.Email,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			if cerr := uniqueViolation(err, "user"); cerr != nil {
				return cerr
			}
			return fmt.Errorf("updating user: %w", err)
		}
		if err := expectOneRow(res, "user", user.ID); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE profiles SET bio = ?, date_of_birth = ?, avatar = ?, updated_at = ?
			 WHERE user_id = ?`,
			profile.Bio,
			nullTime(profile.DateOfBirth),
			profile.Avatar,
			profile.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("updating profile: %w", err)
		}
		return expectOneRow(res, "profile", user.ID)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername is the login lookup.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return u, nil
}

func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, username,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %q: %w", username, err)
	}
	return n > 0, nil
}

func (db *DB) EmailTaken(ctx context.Context, email, exceptUserID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ? AND email <> '' AND id <> ?`,
		email, exceptUserID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking email: %w", err)
	}
	return n > 0, nil
}

func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}

// GetProfileByUserID returns the profile attached to a user.
func (db *DB) GetProfileByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var (
		p   model.Profile
		dob sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, bio, date_of_birth, avatar, updated_at
		 FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.ID, &p.UserID, &p.Bio, &dob, &p.Avatar, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("sqlite: getting profile for user %s: %w", userID, err)
	}
	if dob.Valid {
		t := dob.Time
		p.DateOfBirth = &t
	}
	return &p, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// nullTime maps a nil *time.Time to SQL NULL.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// expectOneRow turns "UPDATE/DELETE matched nothing" into NotFound.
func expectOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
