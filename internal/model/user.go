// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. There is no inheritance:
// a Post "has" an owner ID and a list of Tags, it doesn't "extend" anything.
package model

import "time"

// User represents a registered account.
//
// WHY PasswordHash AND NOT Password?
// The plaintext password only ever lives in the registration/login form.
// What we persist is the bcrypt hash (see auth.PasswordService). Naming the
// field after what it actually holds makes it hard to accidentally compare
// or render the wrong thing.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName"  db:"last_name"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"` // never serialised
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// DisplayName returns "First Last" when available, otherwise the username.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// Profile holds the supplementary, non-auth data for a user.
//
// There is exactly one Profile per User. It is created (empty) in the same
// transaction as the User during registration, so callers can always assume
// it exists.
type Profile struct {
	ID          string     `json:"id"          db:"id"`
	UserID      string     `json:"userId"      db:"user_id"`
	Bio         string     `json:"bio"         db:"bio"`
	DateOfBirth *time.Time `json:"dateOfBirth" db:"date_of_birth"` // nil = not set
	Avatar      string     `json:"avatar"      db:"avatar"`        // path relative to the media dir
	UpdatedAt   time.Time  `json:"updatedAt"   db:"updated_at"`
}
