// Package form parses and validates the HTML forms of the site.
//
// Each form is a plain struct filled from url.Values by a FromValues-style
// constructor. Validate returns an Errors map keyed by field name; an empty
// map means the form is valid. Templates read both the struct (to re-fill
// inputs) and the Errors (to show messages next to them).
//
// Checks that need the database (is this username taken?) are not done here.
// The service layer returns apperror.Conflict for those and the handler
// merges it into the same Errors with AddError.
package form

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sakif/inkwell/internal/apperror"
)

// NonField collects errors that don't belong to a single input, such as
// "please enter a correct username and password".
const NonField = "__all__"

// Errors maps a field name to its messages.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Get returns the first message for field, or "".
func (e Errors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Valid() bool {
	return len(e) == 0
}

// Merge copies every message of other into e.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

// AddError records a service-layer error on the form. Validation and
// conflict errors land on their field (or NonField when they have none).
// It reports false for any other error, which the caller should treat as
// a server error.
func (e Errors) AddError(err error) bool {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	if !errors.Is(err, apperror.ErrValidation) &&
		!errors.Is(err, apperror.ErrConflict) &&
		!errors.Is(err, apperror.ErrUnauthenticated) {
		return false
	}
	field := appErr.Field
	if field == "" {
		field = NonField
	}
	e.Add(field, appErr.Message)
	return true
}

// =========================================================================
// FIELD CHECKS
// =========================================================================

func required(errs Errors, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, "This field is required.")
		return false
	}
	return true
}

func maxLength(errs Errors, field, value string, max int) {
	if n := utf8.RuneCountInString(value); n > max {
		errs.Add(field, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", max, n))
	}
}

// validEmail accepts a bare address like "a@b.example", not "Name <a@b>".
func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

func email(errs Errors, field, value string) {
	if !validEmail(value) {
		errs.Add(field, "Enter a valid email address.")
	}
}

func clean(s string) string {
	return strings.TrimSpace(s)
}
