// Package enrich fetches details and credits for discovered candidates and
// merges them into flat records.
package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/metrics"
	"github.com/JakeFAU/movie-harvester/internal/movie"
	"github.com/JakeFAU/movie-harvester/internal/tmdb"
	"github.com/JakeFAU/movie-harvester/internal/worker"
)

const (
	// DefaultWidth is the number of concurrent candidates in flight.
	DefaultWidth = 50
	// TopCast is how many billed cast members a record keeps.
	TopCast = 5
)

// Outcome labels reported to metrics.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
)

// DetailSource serves the two per-movie endpoints. *tmdb.Client satisfies it.
type DetailSource interface {
	Details(ctx context.Context, id int64) (*tmdb.Details, error)
	Credits(ctx context.Context, id int64) (*tmdb.Credits, error)
}

// Enricher merges detail and credits into candidates on a bounded pool.
type Enricher struct {
	source DetailSource
	width  int
	logger *zap.Logger
}

// New creates an Enricher. width <= 0 uses DefaultWidth.
func New(source DetailSource, width int, logger *zap.Logger) *Enricher {
	if width <= 0 {
		width = DefaultWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{source: source, width: width, logger: logger}
}

// Width reports the pool width.
func (e *Enricher) Width() int {
	return e.width
}

// Enrich returns one record per candidate in completion order. Records whose
// fetches failed are returned with Partial set.
func (e *Enricher) Enrich(ctx context.Context, candidates []movie.Candidate) []movie.Record {
	records := worker.Map(ctx, e.width, e.logger, candidates, e.EnrichCandidate)

	partial := 0
	for _, rec := range records {
		if rec.Partial {
			partial++
		}
	}
	e.logger.Info("enrichment finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("records", len(records)),
		zap.Int("partial", partial),
	)
	return records
}

// EnrichID builds a record for a bare id, as when a search resolved a title.
func (e *Enricher) EnrichID(ctx context.Context, id int64) movie.Record {
	return e.EnrichCandidate(ctx, movie.Candidate{SourceID: id})
}

// EnrichCandidate fetches details then credits for one candidate. Either
// fetch may fail independently; the record keeps whatever succeeded.
func (e *Enricher) EnrichCandidate(ctx context.Context, cand movie.Candidate) movie.Record {
	rec := movie.Record{Candidate: cand}
	log := e.logger.With(zap.Int64("tmdb_id", cand.SourceID))

	details, err := e.source.Details(ctx, cand.SourceID)
	if err != nil {
		log.Warn("details fetch failed", zap.Error(err))
		rec.Partial = true
	} else {
		mergeDetails(&rec, details)
	}

	credits, err := e.source.Credits(ctx, cand.SourceID)
	if err != nil {
		log.Warn("credits fetch failed", zap.Error(err))
		rec.Partial = true
	} else {
		rec.Directors = credits.Directors()
		rec.Actors = credits.TopCast(TopCast)
	}

	if rec.Partial {
		metrics.ObserveEnriched(OutcomePartial)
	} else {
		metrics.ObserveEnriched(OutcomeComplete)
	}
	return rec
}

// mergeDetails lets detail fields win over discovery fields when present.
func mergeDetails(rec *movie.Record, d *tmdb.Details) {
	if d.Title != "" {
		rec.Title = d.Title
	}
	if d.ReleaseDate != "" {
		rec.ReleaseDate = d.ReleaseDate
	}
	if d.OriginalLanguage != "" {
		rec.OriginalLanguage = d.OriginalLanguage
	}
	if d.VoteAverage != nil {
		rec.Rating = d.VoteAverage
	}
	if d.VoteCount != nil {
		rec.VoteCount = d.VoteCount
	}
	rec.Budget = d.Budget
	rec.Revenue = d.Revenue
	rec.Runtime = d.Runtime
	rec.Genres = d.GenreNames()
	rec.Companies = d.CompanyNames()
}
