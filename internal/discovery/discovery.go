// Package discovery walks the paginated discover listing and collects
// candidate movies.
package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/metrics"
	"github.com/JakeFAU/movie-harvester/internal/movie"
	"github.com/JakeFAU/movie-harvester/internal/tmdb"
)

// DefaultMaxPages caps how many pages a single Discover call reads.
const DefaultMaxPages = 10

// PageSource returns one discover page. *tmdb.Client satisfies it.
type PageSource interface {
	Discover(ctx context.Context, q tmdb.DiscoverQuery) (*tmdb.Page, error)
}

// Filter selects the candidate population.
type Filter struct {
	Language    string
	ReleaseFrom string
	ReleaseTo   string
}

// Result holds everything collected before paging stopped.
type Result struct {
	Candidates []movie.Candidate
	// PagesFetched counts pages that returned successfully.
	PagesFetched int
	// TotalPages is the upstream total as reported by page 1.
	TotalPages int
	// Truncated is set when a page failed and later pages were not read.
	Truncated bool
	Err       error
}

// Empty reports whether discovery produced no candidates.
func (r Result) Empty() bool {
	return len(r.Candidates) == 0
}

// Discoverer pages through a PageSource sequentially.
type Discoverer struct {
	source   PageSource
	maxPages int
	logger   *zap.Logger
}

// New creates a Discoverer. maxPages <= 0 uses DefaultMaxPages.
func New(source PageSource, maxPages int, logger *zap.Logger) *Discoverer {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{source: source, maxPages: maxPages, logger: logger}
}

// Discover reads page 1, then pages 2..min(total_pages, maxPages). A failed
// page ends paging; candidates gathered so far are kept. Items without an id
// are skipped. Duplicate ids across pages are kept as-is.
func (d *Discoverer) Discover(ctx context.Context, filter Filter) Result {
	var res Result
	log := d.logger.With(zap.String("language", filter.Language))

	for page := 1; ; page++ {
		resp, err := d.source.Discover(ctx, tmdb.DiscoverQuery{
			Language:    filter.Language,
			ReleaseFrom: filter.ReleaseFrom,
			ReleaseTo:   filter.ReleaseTo,
			Page:        page,
		})
		if err != nil {
			res.Err = fmt.Errorf("discover %s: %w", filter.Language, err)
			res.Truncated = true
			log.Error("discovery stopped", zap.Int("page", page), zap.Error(err))
			break
		}
		res.PagesFetched++
		if page == 1 {
			res.TotalPages = resp.TotalPages
		}

		summaries, raws := resp.Summaries()
		skipped := len(resp.Results) - len(summaries)
		for i, s := range summaries {
			cand, ok := s.Candidate(raws[i])
			if !ok {
				skipped++
				continue
			}
			res.Candidates = append(res.Candidates, cand)
		}
		if skipped > 0 {
			log.Warn("skipped invalid discover entries", zap.Int("page", page), zap.Int("skipped", skipped))
		}

		if page >= min(res.TotalPages, d.maxPages) {
			break
		}
	}

	metrics.ObserveDiscovered(filter.Language, len(res.Candidates))
	log.Info("discovery finished",
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("pages", res.PagesFetched),
		zap.Int("total_pages", res.TotalPages),
		zap.Bool("truncated", res.Truncated),
	)
	return res
}
