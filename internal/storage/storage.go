// Package storage defines where harvested artifacts and prior snapshots live.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by GetObject when path does not exist.
var ErrNotFound = errors.New("object not found")

// BlobStore persists artifacts by path.
type BlobStore interface {
	// PutObject writes r under path and returns a URI for the object.
	PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error)
	// GetObject opens path for reading. The caller closes the reader.
	GetObject(ctx context.Context, path string) (io.ReadCloser, error)
}
