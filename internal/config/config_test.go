package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movie-harvester/internal/httpclient"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"hi", "ko", "ja", "th", "tl"}, cfg.Harvest.Languages)
	require.Equal(t, 50, cfg.Harvest.EnrichWorkers)
	require.Equal(t, 20, cfg.Harvest.ReconcileWorkers)
	require.Equal(t, 10, cfg.Harvest.MaxPages)
	require.Equal(t, "en-US", cfg.TMDB.Language)
	require.Equal(t, "local", cfg.Storage.Backend)
	require.False(t, cfg.Normalize.SkipUnchanged)
	require.False(t, cfg.DB.Enabled())
	require.False(t, cfg.PubSub.Enabled())

	hc := cfg.HTTPClient()
	require.Equal(t, 3, hc.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, hc.Backoff)
	require.Equal(t, 15*time.Second, hc.Timeout)
	require.Equal(t, 50, hc.MaxConcurrency)
	require.Equal(t, httpclient.DefaultRetryableStatuses, hc.RetryableStatuses)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
tmdb:
  api_key: file-key
  language: ko-KR
http:
  max_attempts: 5
  backoff_ms: 250
  exponential: true
  pool_size: 64
  requests_per_second: 40
harvest:
  languages: [ko, ja]
  year: 2023
  max_pages: 3
listing:
  headless: true
  nav_timeout_seconds: 40
storage:
  backend: s3
  s3:
    bucket: harvest
    endpoint: http://minio:9000
    path_style: true
db:
  dsn: postgres://localhost/movies
  table_prefix: stage_
pubsub:
  project_id: proj
  topic_name: harvest-runs
server:
  port: 9090
logging:
  development: false
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.RequireTMDB())
	require.Equal(t, "ko-KR", cfg.TMDB.Language)
	require.Equal(t, []string{"ko", "ja"}, cfg.Harvest.Languages)
	require.Equal(t, 2023, cfg.Harvest.Year)
	require.Equal(t, "s3", cfg.Storage.Backend)
	require.True(t, cfg.Storage.S3.PathStyle)
	require.True(t, cfg.DB.Enabled())
	require.Equal(t, "stage_", cfg.DB.TablePrefix)
	require.True(t, cfg.PubSub.Enabled())
	require.Equal(t, 9090, cfg.Server.Port)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "warn", cfg.Logging.Level)

	hc := cfg.HTTPClient()
	require.Equal(t, 5, hc.MaxAttempts)
	require.True(t, hc.Exponential)
	require.Equal(t, 64, hc.PoolSize)
	require.InDelta(t, 40.0, hc.RequestsPerSecond, 0.001)
	require.Equal(t, 40*time.Second, cfg.Headless().NavigationTimeout)
	require.Equal(t, "table.wikitable", cfg.Headless().ReadySelector)
}

func TestRequireTMDB(t *testing.T) {
	t.Parallel()

	require.ErrorContains(t, Config{}.RequireTMDB(), "HARVESTER_TMDB_API_KEY")
	require.NoError(t, Config{TMDB: TMDBConfig{APIKey: "k"}}.RequireTMDB())
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"sample ratio above one", func(c *Config) { c.Server.TraceSampleRatio = 2 }, "trace_sample_ratio"},
		{"invalid timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"negative backoff", func(c *Config) { c.HTTP.BackoffMs = -1 }, "http.backoff_ms"},
		{"no enrich workers", func(c *Config) { c.Harvest.EnrichWorkers = 0 }, "harvest.enrich_workers"},
		{"no reconcile workers", func(c *Config) { c.Harvest.ReconcileWorkers = 0 }, "harvest.reconcile_workers"},
		{"no pages", func(c *Config) { c.Harvest.MaxPages = 0 }, "harvest.max_pages"},
		{"undersized pool", func(c *Config) { c.HTTP.PoolSize = 10 }, "pool"},
		{"unknown splitter", func(c *Config) { c.Normalize.ActorSplitter = "nlp" }, "actor_splitter"},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = "gcs" }, "gcs_bucket"},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3" }, "s3.bucket"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}

func TestUndersizedPoolWrapsSentinel(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.HTTP.PoolSize = 5
	require.ErrorIs(t, cfg.Validate(), httpclient.ErrPoolUndersized)
}

func TestWorkersScaleWithConcurrentRuns(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Harvest.EnrichWorkers = 50
	cfg.Harvest.ReconcileWorkers = 8
	cfg.Server.Workers = 3

	require.Equal(t, 150, cfg.Workers())
	require.Equal(t, 150, cfg.HTTPClient().MaxConcurrency)

	cfg.HTTP.PoolSize = 100
	require.ErrorIs(t, cfg.Validate(), httpclient.ErrPoolUndersized)
	cfg.HTTP.PoolSize = 150
	require.NoError(t, cfg.Validate())

	cfg.Server.Workers = 0
	require.Equal(t, 50, cfg.Workers())
}
