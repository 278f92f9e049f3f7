// Package local_test tests the local filesystem blob store.
package local_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movie-harvester/internal/storage"
	"github.com/JakeFAU/movie-harvester/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Parallel()

	notDir := filepath.Join(t.TempDir(), "artifact.csv")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0o600))

	tests := []struct {
		name    string
		baseDir string
		wantErr string
	}{
		{name: "existing dir", baseDir: t.TempDir()},
		{name: "nested dir is created", baseDir: filepath.Join(t.TempDir(), "harvest", "out")},
		{name: "blank", baseDir: "  ", wantErr: "base_dir is required"},
		{name: "file in the way", baseDir: notDir, wantErr: "prepare"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store, err := local.New(local.Config{BaseDir: tc.baseDir})
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, store)
			info, err := os.Stat(tc.baseDir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		})
	}
}

func newStore(t *testing.T) (*local.BlobStore, string) {
	t.Helper()
	base := t.TempDir()
	store, err := local.New(local.Config{BaseDir: base})
	require.NoError(t, err)
	return store, base
}

func TestRoundTripAndOverwrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, base := newStore(t)

	first := "tmdb_id,title\n1,Alpha\n"
	uri, err := store.PutObject(ctx, "catalog/2024/ko.csv", "text/csv", bytes.NewBufferString(first))
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.Join(base, "catalog", "2024", "ko.csv"), uri)

	second := "tmdb_id,title\n1,Alpha\n2,Beta\n"
	_, err = store.PutObject(ctx, "catalog/2024/ko.csv", "text/csv", bytes.NewBufferString(second))
	require.NoError(t, err)

	rc, err := store.GetObject(ctx, "catalog/2024/ko.csv")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, second, string(got))
}

func TestRejectsUnsafePaths(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	for _, p := range []string{"", "   ", "../escape.csv", "listing/../../escape.csv"} {
		_, err := store.PutObject(ctx, p, "", bytes.NewBufferString("x"))
		assert.Error(t, err, "put %q", p)
		_, err = store.GetObject(ctx, p)
		assert.Error(t, err, "get %q", p)
		assert.NotErrorIs(t, err, storage.ErrNotFound, "get %q", p)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	_, err := store.GetObject(context.Background(), "listing/1999.csv")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLeadingSlashStaysUnderBaseDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	store, err := local.New(local.Config{BaseDir: base})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "/out/model/2024/facts.json", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.Join(base, "out", "model", "2024", "facts.json"), uri)

	entries, err := os.ReadDir(filepath.Join(base, "out", "model", "2024"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not linger after commit")
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("upstream hung up") }

func TestFailedWriteLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	store, base := newStore(t)
	_, err := store.PutObject(context.Background(), "listing/2024.csv", "text/csv", brokenReader{})
	require.ErrorContains(t, err, "upstream hung up")

	entries, err := os.ReadDir(filepath.Join(base, "listing"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
