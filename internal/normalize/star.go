package normalize

import "github.com/JakeFAU/movie-harvester/internal/movie"

// StarFact is a fact row with its dimension references resolved back to
// names, for consumers that want one document per movie.
type StarFact struct {
	movie.FactRow
	Companies []string `json:"production_companies"`
	Genres    []string `json:"genres"`
	Directors []string `json:"directors"`
	Actors    []string `json:"actors"`
}

// StarFacts joins the bridge tables back onto the facts.
func (r Result) StarFacts() []StarFact {
	names := make(map[movie.DimensionKind]map[int64]string, len(r.Dimensions))
	for kind, table := range r.Dimensions {
		m := make(map[int64]string, len(table))
		for _, e := range table {
			m[e.ID] = e.Name
		}
		names[kind] = m
	}

	refs := make(map[movie.DimensionKind]map[int64][]string, len(r.Bridges))
	for kind, rows := range r.Bridges {
		m := make(map[int64][]string)
		for _, b := range rows {
			m[b.FactID] = append(m[b.FactID], names[kind][b.DimensionID])
		}
		refs[kind] = m
	}

	out := make([]StarFact, 0, len(r.Facts))
	for _, f := range r.Facts {
		out = append(out, StarFact{
			FactRow:   f,
			Companies: refs[movie.DimensionCompany][f.FactID],
			Genres:    refs[movie.DimensionGenre][f.FactID],
			Directors: refs[movie.DimensionDirector][f.FactID],
			Actors:    refs[movie.DimensionActor][f.FactID],
		})
	}
	return out
}
