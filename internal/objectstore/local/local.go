// Package local is an objectstore.Store backed by a directory on disk.
//
// The directory is served read-only by the HTTP server under a URL prefix
// (by default /media/), which is what PublicURL points at.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/ca-portal/internal/objectstore"
)

// compile-time check that *Store implements objectstore.Store
var _ objectstore.Store = (*Store)(nil)

// Store keeps each blob in its own file under dir.
type Store struct {
	dir     string
	baseURL string // always ends in "/"
}

// New creates dir if needed and returns a store whose blobs are served at
// baseURL + key.
func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore/local: creating %s: %w", dir, err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Store{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the directory the blobs live in, for the static file server.
func (s *Store) Dir() string {
	return s.dir
}

// Upload writes r to a temp file in the same directory and renames it into
// place, so a concurrent reader never sees a half-written blob.
func (s *Store) Upload(ctx context.Context, key, contentType string, r io.Reader) error {
	if err := objectstore.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("objectstore/local: creating temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name()) // no-op after a successful rename
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("objectstore/local: writing %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("objectstore/local: syncing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("objectstore/local: closing %s: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("objectstore/local: chmod %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("objectstore/local: storing %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the URL the blob is served at. It does not check that
// the blob exists.
func (s *Store) PublicURL(key string) string {
	return s.baseURL + key
}

// Exists reports whether a blob is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := objectstore.ValidateKey(key); err != nil {
		return false, err
	}
	info, err := os.Stat(s.path(key))
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("objectstore/local: stat %s: %w", key, err)
	}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}
