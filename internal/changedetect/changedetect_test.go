package changedetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movie-harvester/internal/movie"
)

func baseRow() movie.Row {
	return movie.Row{
		TMDBID:    10,
		Title:     "Dune",
		Budget:    "190000000",
		Revenue:   "700000000",
		Rating:    "8.2",
		VoteCount: "5000",
		Genres:    "Science Fiction, Adventure",
		Runtime:   "166",
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*movie.Row)
		want   bool
	}{
		{name: "identical", mutate: func(*movie.Row) {}, want: false},
		{name: "whitespace only", mutate: func(r *movie.Row) { r.Title = "  Dune " }, want: false},
		{name: "title changed", mutate: func(r *movie.Row) { r.Title = "Dune: Part Two" }, want: true},
		{name: "rating changed", mutate: func(r *movie.Row) { r.Rating = "8.3" }, want: true},
		{name: "genres changed", mutate: func(r *movie.Row) { r.Genres = "Science Fiction" }, want: true},
		{name: "budget cleared", mutate: func(r *movie.Row) { r.Budget = "" }, want: true},
		{name: "runtime ignored", mutate: func(r *movie.Row) { r.Runtime = "170" }, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prior := baseRow()
			current := baseRow()
			tt.mutate(&current)
			assert.Equal(t, tt.want, Detect(current, &prior, DefaultFields))
		})
	}
}

func TestDetectWithoutPrior(t *testing.T) {
	t.Parallel()
	assert.True(t, Detect(baseRow(), nil, DefaultFields))
}

func TestAnnotate(t *testing.T) {
	t.Parallel()

	prior := baseRow()
	idx := IndexRows([]movie.Row{prior})

	unchanged := baseRow()
	changed := baseRow()
	changed.TMDBID = 11
	fresh := baseRow()
	fresh.TMDBID = 12

	idx[11] = func() movie.Row { r := baseRow(); r.TMDBID = 11; r.Revenue = "1"; return r }()

	out := Annotate([]movie.Row{unchanged, changed, fresh}, idx, nil)
	require.Len(t, out, 3)
	require.NotNil(t, out[0].IsDataUpdated)
	assert.False(t, *out[0].IsDataUpdated)
	assert.True(t, *out[1].IsDataUpdated)
	assert.True(t, *out[2].IsDataUpdated)

	assert.Nil(t, unchanged.IsDataUpdated)
}

func TestIndexRowsLastWins(t *testing.T) {
	t.Parallel()

	first := baseRow()
	second := baseRow()
	second.Title = "Dune (re-release)"
	idx := IndexRows([]movie.Row{first, second})
	require.Len(t, idx, 1)
	assert.Equal(t, "Dune (re-release)", idx[10].Title)
}
