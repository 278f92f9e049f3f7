package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movie-harvester/internal/storage"
)

// fakeS3 answers path-style PUT and GET requests from memory.
type fakeS3 struct {
	mu    sync.Mutex
	state map[string]stored
}

type stored struct {
	body        []byte
	contentType string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(req.URL.Path, "/")
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.state[key] = stored{body: body, contentType: req.Header.Get("Content-Type")}
		return response(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodGet:
		st, ok := f.state[key]
		if !ok {
			body := []byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return response(http.StatusNotFound, body, http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return response(http.StatusOK, st.body, http.Header{
			"Content-Length": {strconv.Itoa(len(st.body))},
			"Content-Type":   {st.contentType},
		}), nil
	}
	return response(http.StatusNotImplemented, nil, http.Header{}), nil
}

func response(status int, body []byte, h http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: h}
}

func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n || !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newMockStore(t *testing.T, prefix string) (*BlobStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{state: make(map[string]stored)}
	store, err := New(context.Background(), Config{
		Bucket:          "harvest",
		Prefix:          prefix,
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
	})
	require.NoError(t, err)
	return store, fake
}

func TestNewRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.ErrorContains(t, err, "bucket required")
}

func TestPutAndGetRoundTrip(t *testing.T) {
	t.Parallel()

	store, fake := newMockStore(t, "/exports/")
	ctx := context.Background()

	uri, err := store.PutObject(ctx, "catalog/ko.csv", "text/csv", strings.NewReader("tmdb_id,title\n1,Parasite\n"))
	require.NoError(t, err)
	require.Equal(t, "s3://harvest/exports/catalog/ko.csv", uri)

	fake.mu.Lock()
	obj, ok := fake.state["harvest/exports/catalog/ko.csv"]
	fake.mu.Unlock()
	require.True(t, ok)
	require.Equal(t, "text/csv", obj.contentType)

	rc, err := store.GetObject(ctx, "catalog/ko.csv")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "tmdb_id,title\n1,Parasite\n", string(data))
}

func TestGetMissingMapsToNotFound(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t, "")
	_, err := store.GetObject(context.Background(), "listing/2023.csv")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
