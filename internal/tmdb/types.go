package tmdb

import (
	"encoding/json"

	"github.com/JakeFAU/movie-harvester/internal/movie"
)

// Summary is one entry of a discover or search result page.
type Summary struct {
	ID               *int64   `json:"id"`
	Title            string   `json:"title"`
	ReleaseDate      string   `json:"release_date"`
	VoteAverage      *float64 `json:"vote_average"`
	VoteCount        *int64   `json:"vote_count"`
	OriginalLanguage string   `json:"original_language"`
	GenreIDs         []int64  `json:"genre_ids"`
}

// Candidate converts the summary into a discovery candidate. ok is false when
// the entry carries no id.
func (s Summary) Candidate(raw json.RawMessage) (movie.Candidate, bool) {
	if s.ID == nil {
		return movie.Candidate{}, false
	}
	return movie.Candidate{
		SourceID:         *s.ID,
		Title:            s.Title,
		ReleaseDate:      s.ReleaseDate,
		Rating:           s.VoteAverage,
		VoteCount:        s.VoteCount,
		OriginalLanguage: s.OriginalLanguage,
		GenreRefs:        s.GenreIDs,
		Raw:              raw,
	}, true
}

// Page is a paginated result envelope. Results are kept raw so one malformed
// entry does not discard the page.
type Page struct {
	Page         int               `json:"page"`
	TotalPages   int               `json:"total_pages"`
	TotalResults int               `json:"total_results"`
	Results      []json.RawMessage `json:"results"`
}

// Summaries decodes each result, skipping entries that do not parse.
func (p *Page) Summaries() ([]Summary, []json.RawMessage) {
	out := make([]Summary, 0, len(p.Results))
	raws := make([]json.RawMessage, 0, len(p.Results))
	for _, raw := range p.Results {
		var s Summary
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		out = append(out, s)
		raws = append(raws, raw)
	}
	return out, raws
}

// Named is an {id, name} pair such as a genre or production company.
type Named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Details is the /movie/{id} payload.
type Details struct {
	ID                  *int64   `json:"id"`
	Title               string   `json:"title"`
	ReleaseDate         string   `json:"release_date"`
	Budget              *int64   `json:"budget"`
	Revenue             *int64   `json:"revenue"`
	Runtime             *int     `json:"runtime"`
	VoteAverage         *float64 `json:"vote_average"`
	VoteCount           *int64   `json:"vote_count"`
	OriginalLanguage    string   `json:"original_language"`
	Genres              []Named  `json:"genres"`
	ProductionCompanies []Named  `json:"production_companies"`
}

// GenreNames returns genre names in upstream order.
func (d *Details) GenreNames() []string {
	return names(d.Genres)
}

// CompanyNames returns production company names in upstream order.
func (d *Details) CompanyNames() []string {
	return names(d.ProductionCompanies)
}

func names(items []Named) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

// CastMember is one billed cast entry.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
}

// CrewMember is one crew entry.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Credits is the /movie/{id}/credits payload.
type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Directors returns crew names whose job is Director, duplicates included.
func (c *Credits) Directors() []string {
	var out []string
	for _, member := range c.Crew {
		if member.Job == "Director" {
			out = append(out, member.Name)
		}
	}
	return out
}

// TopCast returns the first n cast entries in billing order.
func (c *Credits) TopCast(n int) []movie.Actor {
	if n > len(c.Cast) {
		n = len(c.Cast)
	}
	if n <= 0 {
		return nil
	}
	out := make([]movie.Actor, 0, n)
	for _, member := range c.Cast[:n] {
		out = append(out, movie.Actor{Name: member.Name, Character: member.Character})
	}
	return out
}
