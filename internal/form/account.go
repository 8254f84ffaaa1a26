package form

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	MaxUsernameLength = 150
	MaxNameLength     = 150
	MaxBioLength      = 2000

	// MaxAvatarBytes caps uploaded avatar images at 2 MiB.
	MaxAvatarBytes = 2 << 20

	// DateLayout is the format of <input type="date"> values.
	DateLayout = "2006-01-02"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// AvatarTypes lists the accepted image types and the file extension each is
// stored under.
var AvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// =========================================================================
// REGISTRATION
// =========================================================================

type Registration struct {
	Username  string
	FirstName string
	Email     string
	Password  string
	Password2 string
}

func RegistrationFromValues(v url.Values) Registration {
	return Registration{
		Username:  clean(v.Get("username")),
		FirstName: clean(v.Get("first_name")),
		Email:     clean(v.Get("email")),
		// Passwords are taken verbatim: leading spaces are part of the secret.
		Password:  v.Get("password"),
		Password2: v.Get("password2"),
	}
}

func (f Registration) Validate() Errors {
	errs := Errors{}

	if required(errs, "username", f.Username) {
		maxLength(errs, "username", f.Username, MaxUsernameLength)
		if !usernamePattern.MatchString(f.Username) {
			errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
		}
	}
	maxLength(errs, "first_name", f.FirstName, MaxNameLength)
	if required(errs, "email", f.Email) {
		email(errs, "email", f.Email)
	}
	if required(errs, "password", f.Password) {
		// bcrypt ignores everything past 72 bytes.
		if len(f.Password) > 72 {
			errs.Add("password", "Password must be 72 bytes or fewer.")
		}
	}
	if required(errs, "password2", f.Password2) && f.Password != f.Password2 {
		errs.Add("password2", "Passwords don't match.")
	}
	return errs
}

// =========================================================================
// LOGIN
// =========================================================================

type Login struct {
	Username string
	Password string
	Next     string
}

func LoginFromValues(v url.Values) Login {
	return Login{
		Username: clean(v.Get("username")),
		Password: v.Get("password"),
		Next:     SafeNext(v.Get("next")),
	}
}

func (f Login) Validate() Errors {
	errs := Errors{}
	required(errs, "username", f.Username)
	required(errs, "password", f.Password)
	return errs
}

// SafeNext returns next if it is a local absolute path ("/blog/"), and ""
// for anything that could send the browser to another host
// ("//evil.example", "https://evil.example", "/\evil").
func SafeNext(next string) string {
	if next == "" || next[0] != '/' {
		return ""
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}

// =========================================================================
// PROFILE EDIT
// =========================================================================

// UserEdit holds the account fields of the profile edit page.
type UserEdit struct {
	FirstName string
	LastName  string
	Email     string
}

func UserEditFromValues(v url.Values) UserEdit {
	return UserEdit{
		FirstName: clean(v.Get("first_name")),
		LastName:  clean(v.Get("last_name")),
		Email:     clean(v.Get("email")),
	}
}

func (f UserEdit) Validate() Errors {
	errs := Errors{}
	maxLength(errs, "first_name", f.FirstName, MaxNameLength)
	maxLength(errs, "last_name", f.LastName, MaxNameLength)
	if f.Email != "" {
		email(errs, "email", f.Email)
	}
	return errs
}

// ProfileEdit holds the profile fields of the profile edit page.
// DateOfBirth is the raw input; Validate parses it into Birth.
type ProfileEdit struct {
	Bio         string
	DateOfBirth string
	Birth       *time.Time
}

func ProfileEditFromValues(v url.Values) ProfileEdit {
	return ProfileEdit{
		Bio:         clean(v.Get("bio")),
		DateOfBirth: clean(v.Get("date_of_birth")),
	}
}

// Validate checks the fields and, when the date is well-formed, sets Birth.
// It takes a pointer receiver because of that side effect.
func (f *ProfileEdit) Validate(now time.Time) Errors {
	errs := Errors{}
	maxLength(errs, "bio", f.Bio, MaxBioLength)

	f.Birth = nil
	if f.DateOfBirth != "" {
		t, err := time.Parse(DateLayout, f.DateOfBirth)
		switch {
		case err != nil:
			errs.Add("date_of_birth", "Enter a valid date (YYYY-MM-DD).")
		case t.After(now):
			errs.Add("date_of_birth", "Date of birth can't be in the future.")
		default:
			f.Birth = &t
		}
	}
	return errs
}

// CheckAvatar validates an uploaded avatar from its sniffed content type
// and size. It returns the file extension to store it under.
func CheckAvatar(contentType string, size int64) (ext string, errs Errors) {
	errs = Errors{}
	if size > MaxAvatarBytes {
		errs.Add("avatar", "Avatar must be 2 MB or smaller.")
		return "", errs
	}
	ext, ok := AvatarTypes[contentType]
	if !ok {
		errs.Add("avatar", "Upload a valid image. Accepted formats: JPEG, PNG, GIF, WebP.")
		return "", errs
	}
	return ext, errs
}
