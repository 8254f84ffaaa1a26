// Package view renders the HTML pages.
//
// TEMPLATE COMPOSITION:
// Every page is parsed together with base.html (the layout) and the shared
// partials (files starting with "_"). base.html calls {{template "content" .}}
// and each page file fills it with {{define "content"}}...{{end}}.
//
// WHY ONE TEMPLATE SET PER PAGE?
// If all pages were parsed into one set, every page's "content" block would
// overwrite the previous one and the last file parsed would win. One set per
// page keeps the blocks apart.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/sakif/inkwell/internal/flash"
	"github.com/sakif/inkwell/internal/form"
	"github.com/sakif/inkwell/internal/model"
)

const layout = "base.html"

// Base is the data every page gets. Page-specific structs embed it, so a
// template can use {{.User}} and {{.Notice}} no matter which page it is.
type Base struct {
	Title  string
	User   *model.User // nil for anonymous visitors
	Notice *flash.Notice
	Errors form.Errors
	Path   string // request path, for the login link's ?next=
}

// SetNotice shows n on the page being rendered, without a redirect.
func (b *Base) SetNotice(n flash.Notice) {
	b.Notice = &n
}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// New parses every page in fsys. Page names are file names without the
// .html suffix ("post_list", "login", ...).
func New(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("view: listing templates: %w", err)
	}

	var partials, pages []string
	for _, f := range files {
		switch {
		case f == layout:
		case strings.HasPrefix(f, "_"):
			partials = append(partials, f)
		default:
			pages = append(pages, f)
		}
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages)), logger: logger}
	for _, page := range pages {
		patterns := append([]string{layout}, partials...)
		patterns = append(patterns, page)

		tmpl, err := template.New(layout).Funcs(Funcs).ParseFS(fsys, patterns...)
		if err != nil {
			return nil, fmt.Errorf("view: parsing %s: %w", page, err)
		}
		r.pages[strings.TrimSuffix(page, ".html")] = tmpl
	}
	return r, nil
}

// Has reports whether a page with that name was parsed.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Render executes page name into a buffer first and only then writes the
// status and body. A template error therefore turns into a clean 500
// instead of half a page with a 200 status.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := r.pages[name]
	if !ok {
		r.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		r.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Funcs are the helpers available in every template.
var Funcs = template.FuncMap{
	"date":          formatDate,
	"truncatewords": truncateWords,
	"media":         mediaURL,
	"paragraphs":    paragraphs,
	"join":          strings.Join,
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// truncateWords keeps the first n words and adds "..." if anything was cut.
func truncateWords(n int, s string) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " ..."
}

// mediaURL turns a stored relative path into a /media/ URL.
func mediaURL(rel string) string {
	if rel == "" {
		return ""
	}
	return path.Join("/media", rel)
}

// paragraphs splits text on blank lines, for rendering each block as <p>.
func paragraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
