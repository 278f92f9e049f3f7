// Package local keeps harvest artifacts under a directory on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/movie-harvester/internal/storage"
)

// Config selects the artifact root.
type Config struct {
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore maps blob paths onto files below root. Writes land in a
// sibling temp file and are renamed into place, so readers never observe a
// half-written CSV.
type BlobStore struct {
	root string
}

var _ storage.BlobStore = (*BlobStore)(nil)

// New prepares BaseDir, creating it when needed.
func New(cfg Config) (*BlobStore, error) {
	root := strings.TrimSpace(cfg.BaseDir)
	if root == "" {
		return nil, errors.New("local storage: base_dir is required")
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("local storage: prepare %s: %w", root, err)
	}
	if err := probeWritable(root); err != nil {
		return nil, err
	}
	return &BlobStore{root: root}, nil
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("local storage: %s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("local storage: remove probe: %w", err)
	}
	return nil
}

// PutObject stores r at path and returns a file:// URI. contentType is
// ignored on disk.
func (s *BlobStore) PutObject(_ context.Context, path, _ string, r io.Reader) (string, error) {
	dest, err := s.locate(path)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("local storage: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("local storage: temp file: %w", err)
	}
	if err := commit(tmp, r, dest); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("local storage: %s: %w", path, err)
	}
	return "file://" + dest, nil
}

func commit(tmp *os.File, r io.Reader, dest string) error {
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// GetObject opens the file stored at path.
func (s *BlobStore) GetObject(_ context.Context, path string) (io.ReadCloser, error) {
	src, err := s.locate(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src) // #nosec G304 -- locate keeps src below root.
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s: %w", src, storage.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("local storage: open %s: %w", path, err)
	}
	return f, nil
}

// locate resolves a blob path below root. Leading slashes are dropped, as
// for object keys; paths that climb out of root are rejected.
func (s *BlobStore) locate(path string) (string, error) {
	rel := filepath.FromSlash(strings.TrimLeft(strings.TrimSpace(path), "/"))
	if rel == "" {
		return "", errors.New("local storage: path is required")
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("local storage: path %q escapes the base directory", path)
	}
	return filepath.Join(s.root, rel), nil
}
