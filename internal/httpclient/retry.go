package httpclient

import (
	"context"
	"errors"
	"math"
	"net"
	"time"
)

// DefaultRetryableStatuses are retried until attempts run out.
var DefaultRetryableStatuses = []int{429, 500, 502, 503, 504}

// Sleeper waits between attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff returns the wait before attempt n+1, where n is the attempt that
// just failed (1-based).
func (c *Client) backoff(n int) time.Duration {
	if !c.cfg.Exponential {
		return c.cfg.Backoff
	}
	delay := float64(c.cfg.Backoff) * math.Pow(2, float64(n-1))
	if c.cfg.MaxBackoff > 0 && delay > float64(c.cfg.MaxBackoff) {
		return c.cfg.MaxBackoff
	}
	return time.Duration(delay)
}

// classify decides the failure kind of one attempt. parent is the caller's
// context, which distinguishes caller cancellation from a per-attempt timeout.
func (c *Client) classify(parent context.Context, status int, err error) error {
	if err != nil {
		if parent.Err() != nil {
			return ErrPermanent
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTransient
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return ErrTransient
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			// Dial, reset and EOF errors surface as *url.Error wrapping
			// non-net.Error causes; treat them as connection-level.
			return ErrTransient
		}
	}
	if _, ok := c.retryable[status]; ok {
		return ErrTransient
	}
	return ErrPermanent
}
