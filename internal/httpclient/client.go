package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/movie-harvester/internal/metrics"
)

// Config controls retry, timeout, pool and throttle behavior.
type Config struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Backoff is the fixed delay, or the base delay when Exponential is set.
	Backoff     time.Duration
	Exponential bool
	MaxBackoff  time.Duration
	// Timeout bounds each attempt, including reading the body.
	Timeout           time.Duration
	RetryableStatuses []int
	// MaxConcurrency is the number of goroutines that will call Fetch at once.
	MaxConcurrency int
	// PoolSize is the per-host connection capacity. Zero means MaxConcurrency.
	PoolSize int
	// RequestsPerSecond enables a token bucket when > 0.
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// Client is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	sleeper    Sleeper
	retryable  map[int]struct{}
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithSleeper overrides how the client waits between attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleeper = s
		}
	}
}

// WithTransport replaces the pooled transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.httpClient.Transport = rt
		}
	}
}

// New builds a Client. It fails when the pool is explicitly sized below
// MaxConcurrency, since callers would then queue on connection acquisition.
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff < 0 {
		return nil, fmt.Errorf("backoff must be >= 0")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if len(cfg.RetryableStatuses) == 0 {
		cfg.RetryableStatuses = DefaultRetryableStatuses
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = cfg.MaxConcurrency
	}
	if cfg.PoolSize < cfg.MaxConcurrency {
		return nil, fmt.Errorf("%w: pool %d < concurrency %d", ErrPoolUndersized, cfg.PoolSize, cfg.MaxConcurrency)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	retryable := make(map[int]struct{}, len(cfg.RetryableStatuses))
	for _, code := range cfg.RetryableStatuses {
		retryable[code] = struct{}{}
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: newPooledTransport(cfg.PoolSize)},
		sleeper:    timerSleeper{},
		retryable:  retryable,
		logger:     logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PoolSize reports the configured connection capacity.
func (c *Client) PoolSize() int {
	return c.cfg.PoolSize
}

// Fetch issues a GET for rawURL with params and returns the body. On failure
// the returned error is a *Failure.
func (c *Client) Fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Failure{URL: rawURL, Kind: ErrPermanent, Err: fmt.Errorf("parse url: %w", err)}
	}
	if len(params) > 0 {
		q := target.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	redacted := redact(target)

	for attempt := 1; ; attempt++ {
		c.logger.Info("fetching", zap.String("url", redacted), zap.Int("attempt", attempt))
		body, status, err := c.attempt(ctx, target.String())
		if err == nil {
			return body, nil
		}

		kind := c.classify(ctx, status, err)
		if kind == ErrPermanent || attempt >= c.cfg.MaxAttempts {
			metrics.ObserveFailure(redacted, kindLabel(kind))
			c.logger.Error("request failed",
				zap.String("url", redacted),
				zap.Int("attempt", attempt),
				zap.Int("status", status),
				zap.Error(err),
			)
			return nil, &Failure{URL: redacted, Attempts: attempt, StatusCode: status, Kind: kind, Err: err}
		}

		delay := c.backoff(attempt)
		metrics.ObserveRetry(redacted)
		c.logger.Warn("retrying request",
			zap.String("url", redacted),
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if serr := c.sleeper.Sleep(ctx, delay); serr != nil {
			return nil, &Failure{URL: redacted, Attempts: attempt, StatusCode: status, Kind: ErrPermanent, Err: serr}
		}
	}
}

// FetchJSON fetches and decodes a JSON body into dst.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, params url.Values, dst any) error {
	body, err := c.Fetch(ctx, rawURL, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &Failure{URL: rawURL, Attempts: 1, Kind: ErrMalformed, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, target string) ([]byte, int, error) {
	if err := c.wait(ctx, target); err != nil {
		return nil, 0, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstreamAttempt(target, 0, time.Since(start))
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully read below

	body, err := io.ReadAll(resp.Body)
	metrics.ObserveUpstreamAttempt(target, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode}
	}
	return body, resp.StatusCode, nil
}

func (c *Client) wait(ctx context.Context, target string) error {
	if c.limiter == nil {
		return nil
	}
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(target, waited)
	}
	return nil
}

func newPooledTransport(poolSize int) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          poolSize,
		MaxIdleConnsPerHost:   poolSize,
		MaxConnsPerHost:       poolSize,
		IdleConnTimeout:       90 * time.Second,
	}
}

var redactedParams = []string{"api_key", "apikey", "token"}

func redact(u *url.URL) string {
	clone := *u
	q := clone.Query()
	for _, key := range redactedParams {
		if q.Has(key) {
			q.Set(key, "REDACTED")
		}
	}
	clone.RawQuery = q.Encode()
	return clone.String()
}

func kindLabel(kind error) string {
	switch kind {
	case ErrTransient:
		return "transient"
	case ErrMalformed:
		return "malformed"
	default:
		return "permanent"
	}
}
