// Package web holds the HTML templates and static assets.
//
// The templates are compiled into the binary with go:embed, so the server
// doesn't depend on the working directory to find them. Static files are
// still served from disk (STATIC_DIR) so they can be swapped without a
// rebuild.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templates embed.FS

// Templates returns the template files with the "templates/" prefix
// stripped, ready for view.New.
func Templates() fs.FS {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		// fs.Sub only fails on an invalid path, and "templates" is valid.
		panic(err)
	}
	return sub
}
