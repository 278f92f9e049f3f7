package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/metrics"
	"github.com/JakeFAU/movie-harvester/internal/movie"
)

// Options configures a Normalizer.
type Options struct {
	// Actors splits the actor field. Defaults to CreditSplitter.
	Actors ActorNameSplitter
	// SkipUnchanged drops rows whose is_data_updated is explicitly false.
	SkipUnchanged bool
}

// Result is the full normalized output of one run.
type Result struct {
	Dimensions map[movie.DimensionKind][]movie.DimensionEntity
	Bridges    map[movie.DimensionKind][]movie.BridgeRow
	Facts      []movie.FactRow
	Dates      []movie.DateDimension
	Skipped    int
}

// Normalizer consumes rows one at a time.
type Normalizer struct {
	state   *State
	actors  ActorNameSplitter
	skip    bool
	facts   []movie.FactRow
	bridges map[movie.DimensionKind][]movie.BridgeRow
	dates   map[string]movie.DateDimension
	order   []string
	skipped int
	logger  *zap.Logger
}

// New creates a Normalizer with fresh state.
func New(opts Options, logger *zap.Logger) *Normalizer {
	if opts.Actors == nil {
		opts.Actors = CreditSplitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		state:   NewState(),
		actors:  opts.Actors,
		skip:    opts.SkipUnchanged,
		bridges: make(map[movie.DimensionKind][]movie.BridgeRow, len(movie.DimensionKinds)),
		dates:   make(map[string]movie.DateDimension),
		logger:  logger,
	}
}

// State exposes the id maps for lookups.
func (n *Normalizer) State() *State {
	return n.state
}

// Add normalizes one row tagged with source. ok is false when the row was
// skipped as unchanged.
func (n *Normalizer) Add(row movie.Row, source string) (factID int64, ok bool) {
	if n.skip && row.IsDataUpdated != nil && !*row.IsDataUpdated {
		n.skipped++
		return 0, false
	}

	factID = n.state.NextFactID()
	n.facts = append(n.facts, movie.FactRow{
		FactID:           factID,
		TMDBID:           row.TMDBID,
		Title:            row.Title,
		Budget:           parseInt64(row.Budget),
		Revenue:          parseInt64(row.Revenue),
		Rating:           parseRating(row.Rating),
		VoteCount:        parseInt64(row.VoteCount),
		ReleaseDate:      row.ReleaseDate,
		OriginalLanguage: row.OriginalLanguage,
		Runtime:          parseInt(row.Runtime),
		Source:           source,
	})
	n.addDate(row.ReleaseDate)

	n.bridge(movie.DimensionCompany, factID, splitList(row.ProductionCompanies, ","))
	n.bridge(movie.DimensionGenre, factID, splitList(row.Genres, ","))
	n.bridge(movie.DimensionDirector, factID, splitList(row.Directors, ","))
	n.bridge(movie.DimensionActor, factID, dedup(n.actors.Split(row.Actors)))
	return factID, true
}

// AddAll normalizes rows in order and returns how many were kept.
func (n *Normalizer) AddAll(rows []movie.Row, source string) int {
	kept := 0
	for _, row := range rows {
		if _, ok := n.Add(row, source); ok {
			kept++
		}
	}
	return kept
}

func (n *Normalizer) bridge(kind movie.DimensionKind, factID int64, names []string) {
	for _, name := range names {
		n.bridges[kind] = append(n.bridges[kind], movie.BridgeRow{
			FactID:      factID,
			DimensionID: n.state.Resolve(kind, name),
		})
	}
}

func (n *Normalizer) addDate(date string) {
	date = strings.TrimSpace(date)
	if date == "" {
		return
	}
	if _, ok := n.dates[date]; ok {
		return
	}
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		n.logger.Warn("invalid release date", zap.String("release_date", date))
		return
	}
	n.dates[date] = movie.DateDimension{
		ReleaseDate: date,
		Year:        t.Year(),
		Month:       int(t.Month()),
		Day:         t.Day(),
	}
	n.order = append(n.order, date)
}

// Result exports everything accumulated so far.
func (n *Normalizer) Result() Result {
	res := Result{
		Dimensions: make(map[movie.DimensionKind][]movie.DimensionEntity, len(movie.DimensionKinds)),
		Bridges:    make(map[movie.DimensionKind][]movie.BridgeRow, len(movie.DimensionKinds)),
		Facts:      append([]movie.FactRow(nil), n.facts...),
		Dates:      make([]movie.DateDimension, 0, len(n.order)),
		Skipped:    n.skipped,
	}
	for _, kind := range movie.DimensionKinds {
		res.Dimensions[kind] = n.state.Table(kind)
		res.Bridges[kind] = append([]movie.BridgeRow(nil), n.bridges[kind]...)
		metrics.SetDimensionEntities(string(kind), n.state.Len(kind))
	}
	for _, date := range n.order {
		res.Dates = append(res.Dates, n.dates[date])
	}
	n.logger.Info("normalization finished",
		zap.Int("facts", len(res.Facts)),
		zap.Int("skipped", res.Skipped),
		zap.Int("companies", len(res.Dimensions[movie.DimensionCompany])),
		zap.Int("genres", len(res.Dimensions[movie.DimensionGenre])),
		zap.Int("directors", len(res.Dimensions[movie.DimensionDirector])),
		zap.Int("actors", len(res.Dimensions[movie.DimensionActor])),
	)
	return res
}

func parseInt64(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		v := int64(f)
		return &v
	}
	return nil
}

func parseInt(s string) *int {
	v := parseInt64(s)
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

// parseRating rounds to one decimal.
func parseRating(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Round(f*10) / 10
	return &f
}
