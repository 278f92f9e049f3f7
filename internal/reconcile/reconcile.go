// Package reconcile resolves free-text titles from the listing source to
// catalog ids and enriches the resolved movie.
package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/metrics"
	"github.com/JakeFAU/movie-harvester/internal/movie"
	"github.com/JakeFAU/movie-harvester/internal/tmdb"
	"github.com/JakeFAU/movie-harvester/internal/worker"
)

// DefaultWidth is the pool width for ReconcileAll.
const DefaultWidth = 20

// Outcome labels reported to metrics.
const (
	OutcomeExact    = "exact"
	OutcomeFallback = "fallback"
	OutcomeNoMatch  = "no_match"
	OutcomeError    = "error"
)

// Searcher finds movies by title. *tmdb.Client satisfies it.
type Searcher interface {
	SearchMovie(ctx context.Context, title string, year int) ([]tmdb.Summary, error)
}

// IDEnricher builds a flat record for a resolved id. *enrich.Enricher
// satisfies it.
type IDEnricher interface {
	EnrichID(ctx context.Context, id int64) movie.Record
}

// Match is the outcome of reconciling one title.
type Match struct {
	Query string
	Year  int
	// Found is false when the search returned nothing or failed.
	Found bool
	// Fallback is set when no result matched exactly and rank 0 was taken.
	Fallback     bool
	ID           int64
	MatchedTitle string
	Record       movie.Record
	Err          error
}

// Select picks the first result whose normalized title equals the
// normalized query, else the first result. ok is false for no results.
func Select(query string, results []tmdb.Summary) (pick tmdb.Summary, exact bool, ok bool) {
	var first tmdb.Summary
	found := false
	want := NormalizeTitle(query)
	for _, r := range results {
		if r.ID == nil {
			continue
		}
		if !found {
			first, found = r, true
		}
		if NormalizeTitle(r.Title) == want {
			return r, true, true
		}
	}
	return first, false, found
}

// Reconciler searches, selects and enriches.
type Reconciler struct {
	search   Searcher
	enricher IDEnricher
	width    int
	year     int
	logger   *zap.Logger
}

// New creates a Reconciler. defaultYear is the hint used when a listing entry
// carries no year of its own; width <= 0 uses DefaultWidth.
func New(search Searcher, enricher IDEnricher, width, defaultYear int, logger *zap.Logger) *Reconciler {
	if width <= 0 {
		width = DefaultWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{search: search, enricher: enricher, width: width, year: defaultYear, logger: logger}
}

// Reconcile resolves title, constrained to year when year > 0. A search
// failure or empty result returns a Match with Found unset.
func (r *Reconciler) Reconcile(ctx context.Context, title string, year int) Match {
	m := Match{Query: title, Year: year}
	log := r.logger.With(zap.String("title", title), zap.Int("year", year))

	results, err := r.search.SearchMovie(ctx, title, year)
	if err != nil {
		log.Error("search failed", zap.Error(err))
		m.Err = err
		metrics.ObserveReconciliation(OutcomeError)
		return m
	}

	pick, exact, ok := Select(title, results)
	if !ok {
		log.Info("no match")
		metrics.ObserveReconciliation(OutcomeNoMatch)
		return m
	}
	if exact {
		metrics.ObserveReconciliation(OutcomeExact)
	} else {
		log.Warn("no exact title match, using first result",
			zap.String("matched_title", pick.Title),
			zap.Int("results", len(results)),
		)
		metrics.ObserveReconciliation(OutcomeFallback)
	}

	m.Found = true
	m.Fallback = !exact
	m.ID = *pick.ID
	m.MatchedTitle = pick.Title
	m.Record = r.enricher.EnrichID(ctx, m.ID)
	return m
}

// ReconcileEntry resolves one listing entry. The listing title replaces the
// upstream title, and the listing date fills a missing upstream date.
func (r *Reconciler) ReconcileEntry(ctx context.Context, entry movie.ListingEntry) Match {
	m := r.Reconcile(ctx, entry.Title, YearHint(entry.ReleaseWindow, r.year))
	if !m.Found {
		return m
	}
	m.Record.Title = entry.Title
	if m.Record.ReleaseDate == "" {
		m.Record.ReleaseDate = entry.ReleaseDate
	}
	return m
}

// ReconcileAll resolves entries on a bounded pool. Matches arrive in
// completion order, one per entry.
func (r *Reconciler) ReconcileAll(ctx context.Context, entries []movie.ListingEntry) []Match {
	matches := worker.Map(ctx, r.width, r.logger, entries, r.ReconcileEntry)
	found := 0
	for _, m := range matches {
		if m.Found {
			found++
		}
	}
	r.logger.Info("reconciliation finished", zap.Int("entries", len(entries)), zap.Int("matched", found))
	return matches
}

// Records returns the records of found matches.
func Records(matches []Match) []movie.Record {
	out := make([]movie.Record, 0, len(matches))
	for _, m := range matches {
		if m.Found {
			out = append(out, m.Record)
		}
	}
	return out
}
