package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeHost(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://API.themoviedb.org/3/movie/1", "api.themoviedb.org"},
		{"no scheme", "en.wikipedia.org/wiki/List", "en.wikipedia.org"},
		{"host with port", "localhost:8080", "localhost"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeHost(tc.input); got != tc.expected {
				t.Errorf("SanitizeHost(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if upstreamRequestsTotal == nil || enrichedRecordsTotal == nil || dimensionEntities == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveHelpersUpdateCollectors(t *testing.T) {
	Init()

	before := testutil.ToFloat64(upstreamRetriesTotal.WithLabelValues("retry.example"))
	ObserveRetry("https://retry.example/path")
	if got := testutil.ToFloat64(upstreamRetriesTotal.WithLabelValues("retry.example")); got != before+1 {
		t.Errorf("retries = %f; want %f", got, before+1)
	}

	SetDimensionEntities("genre", 3)
	if got := testutil.ToFloat64(dimensionEntities.WithLabelValues("genre")); got != 3 {
		t.Errorf("genre entities = %f; want 3", got)
	}

	ObserveUpstreamAttempt("https://attempt.example", 0, 10*time.Millisecond)
	if got := testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues("attempt.example", "error")); got != 1 {
		t.Errorf("error attempts = %f; want 1", got)
	}
}

// Fuzz test for SanitizeHost.
func FuzzSanitizeHost(f *testing.F) {
	testcases := []string{"http://example.com", "https://api.themoviedb.org", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeHost(orig) == "" {
			t.Errorf("SanitizeHost(%q) returned an empty string", orig)
		}
	})
}
