package listing

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	defaultCollyTimeout = 20 * time.Second
	// listing pages for busy years run to several megabytes of HTML
	defaultMaxBodyBytes = 16 << 20
)

// CollyConfig controls the static page fetcher.
type CollyConfig struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodyBytes  int
}

// CollyFetcher downloads listing pages without executing scripts.
type CollyFetcher struct {
	template *colly.Collector
}

// NewColly builds a CollyFetcher. Each Fetch clones the template collector,
// so repeated visits of the same URL are never skipped.
func NewColly(cfg CollyConfig) *CollyFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCollyTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	c := colly.NewCollector(colly.MaxBodySize(cfg.MaxBodyBytes))
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(listingTransport())
	return &CollyFetcher{template: c}
}

// Fetch implements Fetcher. Non-2xx responses surface as errors carrying
// the status code.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	c := f.template.Clone()

	var (
		body   []byte
		status error
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html")
	})
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			status = fmt.Errorf("listing page %s returned %d: %w", url, r.StatusCode, err)
			return
		}
		status = err
	})

	visited := make(chan error, 1)
	go func() { visited <- c.Visit(url) }()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("listing fetch %s: %w", url, ctx.Err())
	case err := <-visited:
		switch {
		case status != nil:
			return nil, status
		case err != nil:
			return nil, fmt.Errorf("listing fetch %s: %w", url, err)
		}
		return body, nil
	}
}

func listingTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	}
}
