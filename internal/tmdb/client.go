package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the public v3 API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Fetcher is the transport the client issues requests through.
// *httpclient.Client satisfies it.
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string, params url.Values, dst any) error
}

// DiscoverQuery selects one page of /discover/movie.
type DiscoverQuery struct {
	Language    string
	ReleaseFrom string
	ReleaseTo   string
	Page        int
}

// Client calls TMDB endpoints.
type Client struct {
	fetcher  Fetcher
	apiKey   string
	baseURL  string
	language string
}

// New creates a TMDB client. language defaults to en-US.
func New(fetcher Fetcher, apiKey, baseURL, language string) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("tmdb fetcher required")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = "en-US"
	}
	return &Client{
		fetcher:  fetcher,
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
	}, nil
}

// Discover fetches one page of movies matching q.
func (c *Client) Discover(ctx context.Context, q DiscoverQuery) (*Page, error) {
	params := c.params()
	if q.Language != "" {
		params.Set("with_original_language", q.Language)
	}
	if q.ReleaseFrom != "" {
		params.Set("primary_release_date.gte", q.ReleaseFrom)
	}
	if q.ReleaseTo != "" {
		params.Set("primary_release_date.lte", q.ReleaseTo)
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))

	var payload Page
	if err := c.fetcher.FetchJSON(ctx, c.baseURL+"/discover/movie", params, &payload); err != nil {
		return nil, fmt.Errorf("discover page %d: %w", page, err)
	}
	return &payload, nil
}

// Details fetches /movie/{id}.
func (c *Client) Details(ctx context.Context, id int64) (*Details, error) {
	if id <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	var payload Details
	if err := c.fetcher.FetchJSON(ctx, fmt.Sprintf("%s/movie/%d", c.baseURL, id), c.params(), &payload); err != nil {
		return nil, fmt.Errorf("movie details %d: %w", id, err)
	}
	return &payload, nil
}

// Credits fetches /movie/{id}/credits.
func (c *Client) Credits(ctx context.Context, id int64) (*Credits, error) {
	if id <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	var payload Credits
	if err := c.fetcher.FetchJSON(ctx, fmt.Sprintf("%s/movie/%d/credits", c.baseURL, id), c.params(), &payload); err != nil {
		return nil, fmt.Errorf("movie credits %d: %w", id, err)
	}
	return &payload, nil
}

// SearchMovie returns the first result page for title, narrowed to year when
// year > 0. Adult titles are excluded.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) ([]Summary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("query must not be empty")
	}
	params := c.params()
	params.Set("query", title)
	params.Set("include_adult", "false")
	params.Set("page", "1")
	if year > 0 {
		params.Set("primary_release_year", strconv.Itoa(year))
	}

	var payload Page
	if err := c.fetcher.FetchJSON(ctx, c.baseURL+"/search/movie", params, &payload); err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	summaries, _ := payload.Summaries()
	return summaries, nil
}

func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)
	return params
}
