package form

import (
	"net/url"
	"strings"
	"unicode"
)

const (
	MaxTitleLength      = 250
	MaxTagLength        = 100
	MaxTags             = 20
	MaxCommentLength    = 5000
	MaxShareTitleLength = 100
	MaxShareCommentLen  = 2000
)

// =========================================================================
// POST
// =========================================================================

// Post is the create/update form. Tags is the raw input; TagNames is filled
// by Validate.
type Post struct {
	Title    string
	Body     string
	Tags     string
	TagNames []string
}

func PostFromValues(v url.Values) Post {
	return Post{
		Title: clean(v.Get("title")),
		Body:  strings.TrimSpace(v.Get("body")),
		Tags:  clean(v.Get("tags")),
	}
}

func (f *Post) Validate() Errors {
	errs := Errors{}
	if required(errs, "title", f.Title) {
		maxLength(errs, "title", f.Title, MaxTitleLength)
	}
	required(errs, "body", f.Body)

	f.TagNames = ParseTags(f.Tags)
	if len(f.TagNames) > MaxTags {
		errs.Add("tags", "Too many tags.")
	}
	for _, name := range f.TagNames {
		if len([]rune(name)) > MaxTagLength {
			errs.Add("tags", "Tag names must be 100 characters or fewer.")
			break
		}
	}
	return errs
}

// ParseTags splits tag input into names.
//
// If the input contains a comma, names are comma-separated and may contain
// spaces ("web dev, go" → [web dev, go]). Otherwise names are separated by
// whitespace ("web go" → [web, go]). Double quotes group words in the
// whitespace form ("\"web dev\" go" → [web dev, go]). Duplicates are dropped,
// first occurrence wins.
func ParseTags(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	var raw []string
	if strings.Contains(input, ",") {
		for _, part := range strings.Split(input, ",") {
			raw = append(raw, strings.Trim(strings.TrimSpace(part), `"`))
		}
	} else {
		raw = splitQuoted(input)
	}

	names := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, name := range raw {
		name = strings.Join(strings.Fields(name), " ")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// splitQuoted splits on whitespace outside double quotes.
func splitQuoted(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// =========================================================================
// COMMENT
// =========================================================================

type Comment struct {
	Name  string
	Email string
	Body  string
}

func CommentFromValues(v url.Values) Comment {
	return Comment{
		Name:  clean(v.Get("name")),
		Email: clean(v.Get("email")),
		Body:  strings.TrimSpace(v.Get("body")),
	}
}

func (f Comment) Validate() Errors {
	errs := Errors{}
	if required(errs, "name", f.Name) {
		maxLength(errs, "name", f.Name, 80)
	}
	if required(errs, "email", f.Email) {
		email(errs, "email", f.Email)
	}
	if required(errs, "body", f.Body) {
		maxLength(errs, "body", f.Body, MaxCommentLength)
	}
	return errs
}

// =========================================================================
// SHARE
// =========================================================================

type Share struct {
	Title       string
	Destination string
	Comment     string
}

func ShareFromValues(v url.Values) Share {
	return Share{
		Title:       clean(v.Get("title")),
		Destination: clean(v.Get("destination")),
		Comment:     strings.TrimSpace(v.Get("comment")),
	}
}

func (f Share) Validate() Errors {
	errs := Errors{}
	if required(errs, "title", f.Title) {
		maxLength(errs, "title", f.Title, MaxShareTitleLength)
	}
	if required(errs, "destination", f.Destination) {
		email(errs, "destination", f.Destination)
	}
	maxLength(errs, "comment", f.Comment, MaxShareCommentLen)
	return errs
}
