// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	upstreamRequestsTotal          *prometheus.CounterVec
	upstreamRequestDurationSeconds *prometheus.HistogramVec
	upstreamRetriesTotal           *prometheus.CounterVec
	upstreamFailuresTotal          *prometheus.CounterVec
	rateLimitDelaysSeconds         *prometheus.HistogramVec
	discoveredCandidatesTotal      *prometheus.CounterVec
	enrichedRecordsTotal           *prometheus.CounterVec
	reconciliationsTotal           *prometheus.CounterVec
	dimensionEntities              *prometheus.GaugeVec
	activeWorkers                  prometheus.Gauge
	httpRequestsTotal              *prometheus.CounterVec
	httpRequestDurationSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		upstreamRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_upstream_requests_total",
				Help: "Total upstream HTTP attempts, labeled by host and status code.",
			},
			[]string{"host", "code"},
		)

		upstreamRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_upstream_request_duration_seconds",
				Help:    "Histogram of upstream attempt latencies, labeled by host.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"host"},
		)

		upstreamRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_upstream_retries_total",
				Help: "Total retried upstream attempts, labeled by host.",
			},
			[]string{"host"},
		)

		upstreamFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_upstream_failures_total",
				Help: "Total upstream fetches that ended in failure, labeled by host and kind.",
			},
			[]string{"host", "kind"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_rate_limit_delays_seconds",
				Help:    "Histogram of client-side throttle wait durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)

		discoveredCandidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_discovered_candidates_total",
				Help: "Total candidates returned by catalog discovery, labeled by language.",
			},
			[]string{"language"},
		)

		enrichedRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_enriched_records_total",
				Help: "Total records produced by detail enrichment, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		reconciliationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_reconciliations_total",
				Help: "Total title reconciliations, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		dimensionEntities = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "harvester_dimension_entities",
				Help: "Distinct dimension entities produced by the last normalization run.",
			},
			[]string{"kind"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_active_workers",
				Help: "Number of pool workers currently running a task.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of API request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeHost extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstreamAttempt records a single upstream attempt. A zero code means
// the attempt failed before a response arrived.
func ObserveUpstreamAttempt(rawURL string, code int, duration time.Duration) {
	Init()
	host := SanitizeHost(rawURL)
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	upstreamRequestsTotal.WithLabelValues(host, label).Inc()
	upstreamRequestDurationSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveRetry increments the retry counter for the URL's host.
func ObserveRetry(rawURL string) {
	Init()
	upstreamRetriesTotal.WithLabelValues(SanitizeHost(rawURL)).Inc()
}

// ObserveFailure increments the failure counter for the URL's host.
func ObserveFailure(rawURL string, kind string) {
	Init()
	upstreamFailuresTotal.WithLabelValues(SanitizeHost(rawURL), kind).Inc()
}

// ObserveRateLimitDelay records the duration of a throttle wait.
func ObserveRateLimitDelay(rawURL string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(SanitizeHost(rawURL)).Observe(duration.Seconds())
}

// ObserveDiscovered adds n discovered candidates for a language.
func ObserveDiscovered(language string, n int) {
	Init()
	discoveredCandidatesTotal.WithLabelValues(language).Add(float64(n))
}

// ObserveEnriched increments the enrichment counter for an outcome
// ("complete" or "partial").
func ObserveEnriched(outcome string) {
	Init()
	enrichedRecordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveReconciliation increments the reconciliation counter for an outcome
// ("exact", "fallback", "none" or "error").
func ObserveReconciliation(outcome string) {
	Init()
	reconciliationsTotal.WithLabelValues(outcome).Inc()
}

// SetDimensionEntities records the size of a dimension table.
func SetDimensionEntities(kind string, n int) {
	Init()
	dimensionEntities.WithLabelValues(kind).Set(float64(n))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveHTTPRequest increments the API request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
