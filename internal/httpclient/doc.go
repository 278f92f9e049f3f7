// Package httpclient wraps net/http with retry, backoff, client-side
// throttling and a connection pool sized for the caller's worker count.
//
// Fetch never aborts its caller: when attempts are exhausted, or the upstream
// answers with a non-retryable status, it returns a *Failure describing what
// happened. Callers decide whether that failure is fatal.
package httpclient
