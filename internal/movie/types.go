package movie

import "encoding/json"

// Candidate is a minimally described catalog item produced by discovery.
// Candidates are immutable once created.
type Candidate struct {
	SourceID         int64           `json:"id"`
	Title            string          `json:"title"`
	ReleaseDate      string          `json:"release_date"`
	Rating           *float64        `json:"vote_average,omitempty"`
	VoteCount        *int64          `json:"vote_count,omitempty"`
	OriginalLanguage string          `json:"original_language"`
	GenreRefs        []int64         `json:"genre_ids"`
	Raw              json.RawMessage `json:"-"`
}

// Actor is a cast member projected to name and character.
type Actor struct {
	Name      string `json:"name"`
	Character string `json:"character"`
}

// Record is the flat, merged representation of one movie: the candidate
// fields plus detail and credits. A Record is never mutated after the stage
// that built it hands it off.
type Record struct {
	Candidate

	Budget    *int64   `json:"budget,omitempty"`
	Revenue   *int64   `json:"revenue,omitempty"`
	Runtime   *int     `json:"runtime,omitempty"`
	Directors []string `json:"directors"`
	Actors    []Actor  `json:"actors"`
	Companies []string `json:"production_companies"`
	Genres    []string `json:"genres"`

	// Partial reports that at least one detail fetch failed and the record
	// carries only what was available.
	Partial bool `json:"partial,omitempty"`
}

// DimensionKind names one of the repeating entity families.
type DimensionKind string

// Dimension kinds emitted by normalization.
const (
	DimensionCompany  DimensionKind = "company"
	DimensionGenre    DimensionKind = "genre"
	DimensionDirector DimensionKind = "director"
	DimensionActor    DimensionKind = "actor"
)

// DimensionKinds lists every kind in export order.
var DimensionKinds = []DimensionKind{
	DimensionCompany,
	DimensionGenre,
	DimensionDirector,
	DimensionActor,
}

// DimensionEntity is a deduplicated reference entity with a run-scoped key.
type DimensionEntity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FactRow carries the scalar fields of one normalized movie.
type FactRow struct {
	FactID           int64    `json:"fact_id"`
	TMDBID           int64    `json:"tmdb_id"`
	Title            string   `json:"title"`
	Budget           *int64   `json:"budget"`
	Revenue          *int64   `json:"revenue"`
	Rating           *float64 `json:"rating"`
	VoteCount        *int64   `json:"vote_count"`
	ReleaseDate      string   `json:"release_date"`
	OriginalLanguage string   `json:"original_language"`
	Runtime          *int     `json:"runtime"`
	Source           string   `json:"source"`
}

// BridgeRow pairs a fact with one referenced dimension entity.
type BridgeRow struct {
	FactID      int64 `json:"fact_id"`
	DimensionID int64 `json:"dimension_id"`
}

// DateDimension is one calendar row keyed by ISO release date.
type DateDimension struct {
	ReleaseDate string `json:"release_date"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Day         int    `json:"day"`
}

// ListingEntry is the raw tuple produced by the secondary listing source.
type ListingEntry struct {
	Title         string `json:"title"`
	ReleaseWindow string `json:"release_window"`
	Studio        string `json:"studio"`
	CreditsText   string `json:"credits_text"`
	// ReleaseDate is ReleaseWindow converted to ISO form, empty when the
	// window did not parse.
	ReleaseDate string `json:"release_date,omitempty"`
}
