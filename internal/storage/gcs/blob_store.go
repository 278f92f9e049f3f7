// Package gcs stores harvest artifacts in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	harvesterstorage "github.com/JakeFAU/movie-harvester/internal/storage"
)

// Config names the bucket and an optional key prefix such as "prod/harvest".
type Config struct {
	Bucket string
	Prefix string
}

// BlobStore reads and writes objects in one bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ harvesterstorage.BlobStore = (*BlobStore)(nil)

// New validates cfg. The client is owned by the caller.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	switch {
	case client == nil:
		return nil, errors.New("gcs storage: client is required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("gcs storage: bucket is required")
	}
	return &BlobStore{
		client: client,
		bucket: strings.TrimSpace(cfg.Bucket),
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// PutObject streams r into the object for path and returns its gs:// URI.
// The object only becomes visible once the writer closes cleanly.
func (s *BlobStore) PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("gcs storage: path is required")
	}
	name := s.objectName(path)
	w := s.object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		return "", fmt.Errorf("gcs storage: upload %s: %w", s.uri(name), errors.Join(err, w.Close()))
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs storage: finalize %s: %w", s.uri(name), err)
	}
	return s.uri(name), nil
}

// GetObject opens the object for path. Missing objects wrap ErrNotFound.
func (s *BlobStore) GetObject(ctx context.Context, path string) (io.ReadCloser, error) {
	name := s.objectName(path)
	rc, err := s.object(name).NewReader(ctx)
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		return nil, fmt.Errorf("%s: %w", s.uri(name), harvesterstorage.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("gcs storage: read %s: %w", s.uri(name), err)
	}
	return rc, nil
}

func (s *BlobStore) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(name)
}

func (s *BlobStore) uri(name string) string {
	return "gs://" + s.bucket + "/" + name
}

// objectName joins the prefix and path without doubled or leading slashes.
func (s *BlobStore) objectName(path string) string {
	key := strings.TrimLeft(path, "/")
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key
}
