// Package objectstore declares the Object Store contract: a flat bucket of
// binary blobs, each served at a public URL.
package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty, too long, or could
// escape the bucket.
var ErrInvalidKey = errors.New("objectstore: invalid key")

// MaxKeyLength bounds a key. Avatar keys are far shorter.
const MaxKeyLength = 200

// Store stores blobs under flat keys.
//
// Upload must not leave a partially written blob visible under key: a reader
// sees either the previous content (or nothing) or the complete new blob.
type Store interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) error
	PublicURL(key string) string
	Exists(ctx context.Context, key string) (bool, error)
}

// ValidateKey accepts keys made only of ASCII letters, digits, '-', '_' and
// '.', not starting with a dot.
func ValidateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength || strings.HasPrefix(key, ".") {
		return ErrInvalidKey
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return ErrInvalidKey
		}
	}
	return nil
}
