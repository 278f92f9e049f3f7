package listing

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/movie"
)

// URLForYear returns the listing page for year.
func URLForYear(year int) string {
	return fmt.Sprintf("https://en.wikipedia.org/wiki/List_of_American_films_of_%d", year)
}

// Fetcher returns the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Source fetches and parses one listing page.
type Source struct {
	fetcher Fetcher
	url     string
	year    int
	logger  *zap.Logger
}

// NewSource creates a Source for url, converting dates with year. An empty
// url reads the page for year.
func NewSource(fetcher Fetcher, url string, year int, logger *zap.Logger) *Source {
	if url == "" {
		url = URLForYear(year)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{fetcher: fetcher, url: url, year: year, logger: logger}
}

// Year is the year used for date conversion.
func (s *Source) Year() int {
	return s.year
}

// Entries fetches the page and returns its entries in table order.
func (s *Source) Entries(ctx context.Context) ([]movie.ListingEntry, error) {
	s.logger.Info("fetching listing page", zap.String("url", s.url))
	body, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", s.url, err)
	}
	entries, err := Parse(bytes.NewReader(body), s.year)
	if err != nil {
		return nil, err
	}
	s.logger.Info("parsed listing page", zap.Int("entries", len(entries)))
	return entries, nil
}
