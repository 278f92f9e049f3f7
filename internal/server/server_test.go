package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/config"
	"github.com/JakeFAU/movie-harvester/internal/export"
	"github.com/JakeFAU/movie-harvester/internal/movie"
	"github.com/JakeFAU/movie-harvester/internal/runs"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.TMDB.APIKey = ""
	cfg.DB.DSN = ""
	cfg.PubSub = config.PubSubConfig{}
	cfg.Storage.Backend = "memory"
	cfg.Harvest.Languages = []string{"ko"}
	cfg.Harvest.Year = 2024
	return cfg
}

func submit(t *testing.T, h http.Handler, body string) runs.Run {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var payload struct {
		Run runs.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Run
}

func waitTerminal(t *testing.T, s *Server, id string) runs.Run {
	t.Helper()
	var run runs.Run
	require.Eventually(t, func() bool {
		got, err := s.store.GetRun(context.Background(), id)
		if err != nil {
			return false
		}
		run = got
		return got.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return run
}

func TestBuildServesAndExecutesRuns(t *testing.T) {
	cfg := testConfig(t)
	s, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runner.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		s.Close(context.Background())
	})

	h := s.Handler()

	failed := submit(t, h, `{"kind":"normalize"}`)
	run := waitTerminal(t, s, failed.ID)
	require.Equal(t, runs.StatusFailed, run.Status)
	require.Contains(t, run.ErrorText, "no exports found")

	var buf bytes.Buffer
	require.NoError(t, export.WriteRows(&buf, []movie.Row{{
		TMDBID:           7,
		Title:            "Parasite",
		ReleaseDate:      "2024-05-30",
		OriginalLanguage: "ko",
		Genres:           "Drama",
		Directors:        "Bong Joon-ho",
		Actors:           "Song Kang-ho (Ki-taek)",
	}}, false))
	_, err = s.services.Blobs().PutObject(context.Background(),
		s.services.Pipeline().CatalogPath(2024, "ko"), "text/csv", &buf)
	require.NoError(t, err)

	ok := submit(t, h, `{"kind":"normalize"}`)
	run = waitTerminal(t, s, ok.ID)
	require.Equal(t, runs.StatusSucceeded, run.Status, run.ErrorText)
	require.Equal(t, 1, run.Counters.Facts)
	require.NotEmpty(t, run.Artifacts)
	require.True(t, strings.HasPrefix(run.Artifacts[0], "memory://"), run.Artifacts[0])

	require.Eventually(t, func() bool {
		return len(s.events.ByTopic(localEventTopic)) == 2
	}, 5*time.Second, 10*time.Millisecond)
	last := s.events.ByTopic(localEventTopic)[1]
	event, isEvent := last.Payload.(runs.CompletedEvent)
	require.True(t, isEvent)
	require.Equal(t, ok.ID, event.RunID)
	require.Equal(t, runs.StatusSucceeded, event.Status)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/"+ok.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"succeeded"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildFailsOnBadDSN(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.DSN = "postgres://%zz"

	_, err := Build(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "database init failed")
}
