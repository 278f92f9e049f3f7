package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JakeFAU/movie-harvester/internal/movie"
)

// WriteRows writes a header and rows in movie.RowFields order. withUpdated
// appends the is_data_updated column.
func WriteRows(w io.Writer, rows []movie.Row, withUpdated bool) error {
	cw := csv.NewWriter(w)
	header := append([]string(nil), movie.RowFields...)
	if withUpdated {
		header = append(header, movie.UpdatedField)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Values(withUpdated)); err != nil {
			return fmt.Errorf("write csv row %d: %w", row.TMDBID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadRows parses a CSV written by WriteRows. Columns are matched by header
// name; unknown columns are ignored and missing ones read as empty.
func ReadRows(r io.Reader) ([]movie.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := index["tmdb_id"]; !ok {
		return nil, fmt.Errorf("csv header missing tmdb_id")
	}

	var rows []movie.Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row, err := decodeRow(index, rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeRow(index map[string]int, rec []string) (movie.Row, error) {
	get := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	id, err := strconv.ParseInt(strings.TrimSpace(get("tmdb_id")), 10, 64)
	if err != nil {
		return movie.Row{}, fmt.Errorf("invalid tmdb_id %q", get("tmdb_id"))
	}
	row := movie.Row{
		TMDBID:              id,
		Title:               get("title"),
		Budget:              get("budget"),
		Revenue:             get("revenue"),
		Rating:              get("rating"),
		VoteCount:           get("vote_count"),
		ReleaseDate:         get("release_date"),
		OriginalLanguage:    get("original_language"),
		ProductionCompanies: get("production_companies"),
		Genres:              get("genres"),
		Directors:           get("directors"),
		Actors:              get("actors"),
		Runtime:             get("runtime"),
	}
	if raw := strings.TrimSpace(get(movie.UpdatedField)); raw != "" {
		updated, err := strconv.ParseBool(raw)
		if err != nil {
			return movie.Row{}, fmt.Errorf("invalid %s %q", movie.UpdatedField, raw)
		}
		row.IsDataUpdated = &updated
	}
	return row, nil
}
