// Package apperror defines the application's error vocabulary.
//
// Every layer below the HTTP handlers returns these errors (usually wrapped
// with fmt.Errorf("...: %w", err)). Handlers then use errors.Is to decide
// between a 404 page, a 403 rejection, a login redirect or a generic 500.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // sentinel the error belongs to
	Message string // human-readable message, safe to show to users
	Field   string // optional: form field the error refers to
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation. field names the column that
// collided so the form layer can attach the message to the right input.
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to a plain 403 response.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned when credentials don't match any account.
// The message is deliberately the same for "no such user" and "wrong
// password" so the login form doesn't leak which usernames exist.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "please enter a correct username and password",
	}
}
