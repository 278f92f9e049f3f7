package httpclient

import (
	"errors"
	"fmt"
)

// Failure kinds. Match them with errors.Is against a returned error.
var (
	// ErrTransient marks connection errors, timeouts and retryable statuses
	// that persisted through every attempt.
	ErrTransient = errors.New("transient upstream error")
	// ErrPermanent marks non-retryable 4xx responses and caller cancellation.
	ErrPermanent = errors.New("permanent upstream error")
	// ErrMalformed marks a response body that could not be decoded.
	ErrMalformed = errors.New("malformed upstream payload")
	// ErrPoolUndersized is returned by New when the connection pool cannot
	// serve every concurrent caller.
	ErrPoolUndersized = errors.New("connection pool smaller than max concurrency")
)

// Failure is the value returned when a fetch does not produce a body.
type Failure struct {
	// URL is the request URL with credentials redacted.
	URL        string
	Attempts   int
	StatusCode int
	Kind       error
	Err        error
}

func (f *Failure) Error() string {
	switch {
	case f.StatusCode > 0 && f.Err != nil:
		return fmt.Sprintf("%v: %s returned %d after %d attempt(s): %v", f.Kind, f.URL, f.StatusCode, f.Attempts, f.Err)
	case f.StatusCode > 0:
		return fmt.Sprintf("%v: %s returned %d after %d attempt(s)", f.Kind, f.URL, f.StatusCode, f.Attempts)
	default:
		return fmt.Sprintf("%v: %s failed after %d attempt(s): %v", f.Kind, f.URL, f.Attempts, f.Err)
	}
}

// Unwrap exposes both the failure kind and the underlying cause.
func (f *Failure) Unwrap() []error {
	errs := []error{f.Kind}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// StatusError is the cause recorded for a response with an unexpected status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}
