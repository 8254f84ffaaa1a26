// Package media stores user uploads (avatars) on the local filesystem.
//
// Files are written under a root directory (MEDIA_DIR) and referenced in the
// database by their path relative to it ("avatars/cq1f0v7o0m2g.png"). The
// server exposes the root at /media/.
package media

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
)

// Store writes and removes files under Root.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// Save copies r into dir/<new id><ext> and returns the relative path.
// At most limit bytes are read; a larger upload is rejected and nothing is
// left on disk.
func (s *Store) Save(dir, ext string, r io.Reader, limit int64) (string, error) {
	rel := path.Join(dir, xid.New().String()+ext)
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("media: creating %s: %w", filepath.Dir(full), err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("media: creating file: %w", err)
	}

	// Read one byte past the limit to detect oversize uploads.
	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > limit {
		err = fmt.Errorf("media: upload exceeds %d bytes", limit)
	}
	if err != nil {
		os.Remove(full)
		return "", err
	}
	return rel, nil
}

// Remove deletes a file previously returned by Save. Empty paths and paths
// that would escape the root are ignored, as is a file that's already gone.
func (s *Store) Remove(rel string) error {
	if rel == "" || strings.Contains(rel, "..") || path.IsAbs(rel) {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("media: removing %s: %w", rel, err)
	}
	return nil
}
