package movie

import (
	"fmt"
	"strconv"
	"strings"
)

// Multi-valued field delimiters used in sink rows.
const (
	ListSeparator  = ", "
	ActorSeparator = "; "
)

// RowFields is the fixed column order of the sink contract.
var RowFields = []string{
	"tmdb_id",
	"title",
	"budget",
	"revenue",
	"rating",
	"vote_count",
	"release_date",
	"original_language",
	"production_companies",
	"genres",
	"directors",
	"actors",
	"runtime",
}

// UpdatedField is the optional trailing column written on the listing path.
const UpdatedField = "is_data_updated"

// Row is a Record flattened to the sink contract. Numeric fields keep their
// textual form so rows read back from a snapshot compare exactly as written.
type Row struct {
	TMDBID              int64
	Title               string
	Budget              string
	Revenue             string
	Rating              string
	VoteCount           string
	ReleaseDate         string
	OriginalLanguage    string
	ProductionCompanies string
	Genres              string
	Directors           string
	Actors              string
	Runtime             string

	// IsDataUpdated is nil when change detection did not run.
	IsDataUpdated *bool
}

// ToRow flattens a record into its sink row.
func (r Record) ToRow() Row {
	return Row{
		TMDBID:              r.SourceID,
		Title:               r.Title,
		Budget:              formatInt64(r.Budget),
		Revenue:             formatInt64(r.Revenue),
		Rating:              formatFloat(r.Rating),
		VoteCount:           formatInt64(r.VoteCount),
		ReleaseDate:         r.ReleaseDate,
		OriginalLanguage:    r.OriginalLanguage,
		ProductionCompanies: strings.Join(r.Companies, ListSeparator),
		Genres:              strings.Join(r.Genres, ListSeparator),
		Directors:           strings.Join(r.Directors, ListSeparator),
		Actors:              FormatActors(r.Actors),
		Runtime:             formatInt(r.Runtime),
	}
}

// Values returns the row in RowFields order, followed by is_data_updated when
// withUpdated is set.
func (r Row) Values(withUpdated bool) []string {
	out := []string{
		strconv.FormatInt(r.TMDBID, 10),
		r.Title,
		r.Budget,
		r.Revenue,
		r.Rating,
		r.VoteCount,
		r.ReleaseDate,
		r.OriginalLanguage,
		r.ProductionCompanies,
		r.Genres,
		r.Directors,
		r.Actors,
		r.Runtime,
	}
	if withUpdated {
		updated := ""
		if r.IsDataUpdated != nil {
			updated = strconv.FormatBool(*r.IsDataUpdated)
		}
		out = append(out, updated)
	}
	return out
}

// Field returns the column named name. ok is false for an unknown column.
func (r Row) Field(name string) (value string, ok bool) {
	for i, field := range RowFields {
		if field == name {
			return r.Values(false)[i], true
		}
	}
	if name == UpdatedField {
		return r.Values(true)[len(RowFields)], true
	}
	return "", false
}

// FormatActors renders actors as "Name (Character)" joined by ActorSeparator.
// Entries without a name are dropped. Semicolons inside names and characters
// become commas so each entry stays one token.
func FormatActors(actors []Actor) string {
	parts := make([]string, 0, len(actors))
	for _, a := range actors {
		name := strings.TrimSpace(unseparate(a.Name))
		if name == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", name, unseparate(a.Character)))
	}
	return strings.Join(parts, ActorSeparator)
}

func unseparate(s string) string {
	return strings.ReplaceAll(s, ";", ",")
}

func formatInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
