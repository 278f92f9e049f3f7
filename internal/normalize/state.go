package normalize

import (
	"sort"

	"github.com/JakeFAU/movie-harvester/internal/movie"
)

// State holds the per-run name to id maps and counters.
type State struct {
	ids      map[movie.DimensionKind]map[string]int64
	next     map[movie.DimensionKind]int64
	nextFact int64
}

// NewState returns empty maps with every counter at 1.
func NewState() *State {
	s := &State{
		ids:      make(map[movie.DimensionKind]map[string]int64, len(movie.DimensionKinds)),
		next:     make(map[movie.DimensionKind]int64, len(movie.DimensionKinds)),
		nextFact: 1,
	}
	for _, kind := range movie.DimensionKinds {
		s.ids[kind] = make(map[string]int64)
		s.next[kind] = 1
	}
	return s
}

// Lookup returns the id already assigned to name.
func (s *State) Lookup(kind movie.DimensionKind, name string) (int64, bool) {
	id, ok := s.ids[kind][name]
	return id, ok
}

// Resolve returns the id for name, assigning the next one when name is new.
func (s *State) Resolve(kind movie.DimensionKind, name string) int64 {
	if id, ok := s.ids[kind][name]; ok {
		return id
	}
	if s.ids[kind] == nil {
		s.ids[kind] = make(map[string]int64)
		s.next[kind] = 1
	}
	id := s.next[kind]
	s.ids[kind][name] = id
	s.next[kind]++
	return id
}

// NextFactID returns and advances the fact counter.
func (s *State) NextFactID() int64 {
	id := s.nextFact
	s.nextFact++
	return id
}

// Len reports how many entities of kind exist.
func (s *State) Len(kind movie.DimensionKind) int {
	return len(s.ids[kind])
}

// Table exports kind ordered by id.
func (s *State) Table(kind movie.DimensionKind) []movie.DimensionEntity {
	out := make([]movie.DimensionEntity, 0, len(s.ids[kind]))
	for name, id := range s.ids[kind] {
		out = append(out, movie.DimensionEntity{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
