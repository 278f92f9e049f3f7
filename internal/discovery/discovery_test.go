package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/httpclient"
	"github.com/JakeFAU/movie-harvester/internal/tmdb"
)

type fakeSource struct {
	totalPages int
	perPage    int
	failOn     int
	raw        map[int][]string
	requested  []int
}

func (f *fakeSource) Discover(_ context.Context, q tmdb.DiscoverQuery) (*tmdb.Page, error) {
	f.requested = append(f.requested, q.Page)
	if q.Page == f.failOn {
		return nil, &httpclient.Failure{URL: "discover", Attempts: 3, StatusCode: 503, Kind: httpclient.ErrTransient}
	}
	page := &tmdb.Page{Page: q.Page, TotalPages: f.totalPages}
	if items, ok := f.raw[q.Page]; ok {
		for _, item := range items {
			page.Results = append(page.Results, json.RawMessage(item))
		}
		return page, nil
	}
	for i := 0; i < f.perPage; i++ {
		id := q.Page*100 + i
		page.Results = append(page.Results, json.RawMessage(fmt.Sprintf(`{"id":%d,"title":"t%d"}`, id, id)))
	}
	return page, nil
}

func TestDiscoverCollectsAllPages(t *testing.T) {
	t.Parallel()

	src := &fakeSource{totalPages: 3, perPage: 2}
	res := New(src, 10, zap.NewNop()).Discover(context.Background(), Filter{Language: "ko"})

	require.NoError(t, res.Err)
	assert.Len(t, res.Candidates, 6)
	assert.Equal(t, []int{1, 2, 3}, src.requested)
	assert.Equal(t, 3, res.PagesFetched)
	assert.False(t, res.Truncated)
}

func TestDiscoverCapsAtMaxPages(t *testing.T) {
	t.Parallel()

	src := &fakeSource{totalPages: 500, perPage: 1}
	res := New(src, 0, zap.NewNop()).Discover(context.Background(), Filter{})

	assert.Len(t, src.requested, DefaultMaxPages)
	assert.Len(t, res.Candidates, DefaultMaxPages)
	assert.Equal(t, 500, res.TotalPages)
}

func TestDiscoverStopsOnPageFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{totalPages: 5, perPage: 2, failOn: 3}
	res := New(src, 10, zap.NewNop()).Discover(context.Background(), Filter{Language: "ja"})

	assert.Len(t, res.Candidates, 4)
	assert.Equal(t, []int{1, 2, 3}, src.requested)
	assert.True(t, res.Truncated)
	assert.True(t, errors.Is(res.Err, httpclient.ErrTransient))
}

func TestDiscoverFirstPageFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{totalPages: 5, perPage: 2, failOn: 1}
	res := New(src, 10, zap.NewNop()).Discover(context.Background(), Filter{})

	assert.True(t, res.Empty())
	assert.Error(t, res.Err)
	assert.Equal(t, []int{1}, src.requested)
}

func TestDiscoverEmptyResult(t *testing.T) {
	t.Parallel()

	src := &fakeSource{totalPages: 0, raw: map[int][]string{1: nil}}
	res := New(src, 10, zap.NewNop()).Discover(context.Background(), Filter{})

	assert.True(t, res.Empty())
	assert.NoError(t, res.Err)
	assert.Equal(t, []int{1}, src.requested)
}

func TestDiscoverSkipsInvalidAndKeepsDuplicates(t *testing.T) {
	t.Parallel()

	src := &fakeSource{totalPages: 2, raw: map[int][]string{
		1: {`{"id":1,"title":"A"}`, `{"title":"no id"}`, `{"id":"x"}`},
		2: {`{"id":1,"title":"A again"}`},
	}}
	res := New(src, 10, zap.NewNop()).Discover(context.Background(), Filter{})

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, int64(1), res.Candidates[0].SourceID)
	assert.Equal(t, int64(1), res.Candidates[1].SourceID)
	assert.Equal(t, "A again", res.Candidates[1].Title)
}
