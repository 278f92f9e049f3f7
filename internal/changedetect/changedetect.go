// Package changedetect flags rows whose material fields differ from the
// previously persisted snapshot.
package changedetect

import (
	"strings"

	"github.com/JakeFAU/movie-harvester/internal/movie"
)

// DefaultFields are the columns that make a change material.
var DefaultFields = []string{"title", "budget", "revenue", "rating", "vote_count", "genres"}

// Index maps tmdb_id to the last persisted row. It is read-only once built.
type Index map[int64]movie.Row

// IndexRows builds an Index. A later row with the same id replaces an earlier one.
func IndexRows(rows []movie.Row) Index {
	idx := make(Index, len(rows))
	for _, row := range rows {
		idx[row.TMDBID] = row
	}
	return idx
}

// Detect reports whether current differs from prior on any of fields after
// trimming. A nil prior is always a change. Unknown field names compare equal.
func Detect(current movie.Row, prior *movie.Row, fields []string) bool {
	if prior == nil {
		return true
	}
	for _, field := range fields {
		a, _ := current.Field(field)
		b, _ := prior.Field(field)
		if strings.TrimSpace(a) != strings.TrimSpace(b) {
			return true
		}
	}
	return false
}

// Annotate returns a copy of rows with IsDataUpdated set against idx.
// nil fields uses DefaultFields.
func Annotate(rows []movie.Row, idx Index, fields []string) []movie.Row {
	if fields == nil {
		fields = DefaultFields
	}
	out := make([]movie.Row, len(rows))
	for i, row := range rows {
		var prior *movie.Row
		if p, ok := idx[row.TMDBID]; ok {
			prior = &p
		}
		updated := Detect(row, prior, fields)
		row.IsDataUpdated = &updated
		out[i] = row
	}
	return out
}
