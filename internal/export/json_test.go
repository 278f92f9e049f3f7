package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movie-harvester/internal/movie"
	"github.com/JakeFAU/movie-harvester/internal/normalize"
	"github.com/JakeFAU/movie-harvester/internal/storage/memory"
)

func normalized(t *testing.T) normalize.Result {
	t.Helper()
	n := normalize.New(normalize.Options{}, nil)
	n.AddAll([]movie.Row{
		{TMDBID: 1, Title: "A", Genres: "Drama, Comedy", ReleaseDate: "2024-01-05", Actors: "Ann Lee (Maya)"},
		{TMDBID: 2, Title: "B", Genres: "Comedy"},
	}, "catalog")
	return n.Result()
}

func TestBridgeDocsUseKindKey(t *testing.T) {
	t.Parallel()

	docs := BridgeDocs(movie.DimensionGenre, []movie.BridgeRow{{FactID: 1, DimensionID: 2}})
	raw, err := json.Marshal(docs)
	require.NoError(t, err)
	require.JSONEq(t, `[{"fact_id":1,"genre_id":2}]`, string(raw))
}

func TestPutResultWritesEveryDocument(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	uris, err := PutResult(context.Background(), blobs, "runs/r1", normalized(t))
	require.NoError(t, err)
	require.Len(t, uris, len(DocumentPaths()))
	require.Equal(t, "memory://runs/r1/dimensions/company.json", uris[0])
	require.Equal(t, "application/json", blobs.ContentType("runs/r1/facts.json"))

	rc, err := blobs.GetObject(context.Background(), "runs/r1/dimensions/genre.json")
	require.NoError(t, err)
	defer rc.Close()
	var genres []movie.DimensionEntity
	require.NoError(t, json.NewDecoder(rc).Decode(&genres))
	require.Equal(t, []movie.DimensionEntity{{ID: 1, Name: "Drama"}, {ID: 2, Name: "Comedy"}}, genres)

	rc, err = blobs.GetObject(context.Background(), "runs/r1/bridges/company.json")
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(raw))
}

type failingBlobs struct{}

func (failingBlobs) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket gone")
}

func (failingBlobs) GetObject(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("bucket gone")
}

func TestPutResultStopsOnStoreError(t *testing.T) {
	t.Parallel()

	uris, err := PutResult(context.Background(), failingBlobs{}, "x", normalized(t))
	require.ErrorContains(t, err, "store dimensions/company.json")
	require.Empty(t, uris)
}

func TestWriteJSONIndents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"a": 1}))
	require.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
