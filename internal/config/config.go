// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/movie-harvester/internal/httpclient"
	"github.com/JakeFAU/movie-harvester/internal/listing"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	TMDB      TMDBConfig      `mapstructure:"tmdb"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Harvest   HarvestConfig   `mapstructure:"harvest"`
	Listing   ListingConfig   `mapstructure:"listing"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Output    OutputConfig    `mapstructure:"output"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// TMDBConfig identifies the metadata API.
type TMDBConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

// HTTPConfig configures retry, timeout, pool and throttle behavior of the
// upstream client.
type HTTPConfig struct {
	MaxAttempts       int     `mapstructure:"max_attempts"`
	BackoffMs         int     `mapstructure:"backoff_ms"`
	Exponential       bool    `mapstructure:"exponential"`
	MaxBackoffMs      int     `mapstructure:"max_backoff_ms"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RetryableStatuses []int   `mapstructure:"retryable_statuses"`
	PoolSize          int     `mapstructure:"pool_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	UserAgent         string  `mapstructure:"user_agent"`
}

// HarvestConfig governs the catalog and listing harvest paths.
type HarvestConfig struct {
	Languages        []string `mapstructure:"languages"`
	Year             int      `mapstructure:"year"`
	MaxPages         int      `mapstructure:"max_pages"`
	EnrichWorkers    int      `mapstructure:"enrich_workers"`
	ReconcileWorkers int      `mapstructure:"reconcile_workers"`
}

// ListingConfig controls the listing page fetch.
type ListingConfig struct {
	// URL overrides the page derived from the run year.
	URL               string `mapstructure:"url"`
	Year              int    `mapstructure:"year"`
	Headless          bool   `mapstructure:"headless"`
	RespectRobots     bool   `mapstructure:"respect_robots"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	SettleMs          int    `mapstructure:"settle_ms"`
	// ReadySelector is the CSS selector headless mode waits for.
	ReadySelector string `mapstructure:"ready_selector"`
}

// NormalizeConfig tunes dimensional normalization.
type NormalizeConfig struct {
	SkipUnchanged bool `mapstructure:"skip_unchanged"`
	// ActorSplitter is "credits" or "capitalized".
	ActorSplitter string `mapstructure:"actor_splitter"`
}

// OutputConfig names where artifacts land inside the blob store.
type OutputConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// StorageConfig selects and configures the blob backend.
type StorageConfig struct {
	// Backend is one of local, memory, gcs, s3.
	Backend   string   `mapstructure:"backend"`
	LocalDir  string   `mapstructure:"local_dir"`
	GCSBucket string   `mapstructure:"gcs_bucket"`
	Prefix    string   `mapstructure:"prefix"`
	S3        S3Config `mapstructure:"s3"`
}

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
}

// DBConfig controls access to the relational sink.
type DBConfig struct {
	DSN                    string `mapstructure:"dsn"`
	TablePrefix            string `mapstructure:"table_prefix"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
	EnsureSchema           bool   `mapstructure:"ensure_schema"`
}

// Enabled reports whether a database is configured.
func (c DBConfig) Enabled() bool {
	return c.DSN != ""
}

// PubSubConfig holds metadata for run notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether run events go to Pub/Sub.
func (c PubSubConfig) Enabled() bool {
	return c.ProjectID != "" && c.TopicName != ""
}

// ServerConfig controls HTTP server and run execution behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	Workers         int `mapstructure:"workers"`
	QueueDepth      int `mapstructure:"queue_depth"`
	ShutdownSeconds int `mapstructure:"shutdown_seconds"`
	// TraceSampleRatio samples root spans; 0 samples all.
	TraceSampleRatio float64 `mapstructure:"trace_sample_ratio"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tmdb.api_key", "")
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.language", "en-US")
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_ms", 500)
	v.SetDefault("http.exponential", false)
	v.SetDefault("http.max_backoff_ms", 0)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.retryable_statuses", httpclient.DefaultRetryableStatuses)
	v.SetDefault("http.pool_size", 0)
	v.SetDefault("http.requests_per_second", 0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("http.user_agent", "movie-harvester/0.1")
	v.SetDefault("harvest.languages", []string{"hi", "ko", "ja", "th", "tl"})
	v.SetDefault("harvest.year", 2024)
	v.SetDefault("harvest.max_pages", 10)
	v.SetDefault("harvest.enrich_workers", 50)
	v.SetDefault("harvest.reconcile_workers", 20)
	v.SetDefault("listing.url", "")
	v.SetDefault("listing.year", 2024)
	v.SetDefault("listing.headless", false)
	v.SetDefault("listing.respect_robots", true)
	v.SetDefault("listing.nav_timeout_seconds", 25)
	v.SetDefault("listing.settle_ms", 500)
	v.SetDefault("listing.ready_selector", "table.wikitable")
	v.SetDefault("normalize.skip_unchanged", false)
	v.SetDefault("normalize.actor_splitter", "credits")
	v.SetDefault("output.prefix", "exports")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "./data")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.path_style", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table_prefix", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("db.ensure_schema", true)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.workers", 1)
	v.SetDefault("server.queue_depth", 16)
	v.SetDefault("server.shutdown_seconds", 10)
	v.SetDefault("server.trace_sample_ratio", 1.0)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.BackoffMs < 0 {
		return fmt.Errorf("http.backoff_ms must be >= 0")
	}
	if c.Harvest.EnrichWorkers <= 0 {
		return fmt.Errorf("harvest.enrich_workers must be > 0")
	}
	if c.Harvest.ReconcileWorkers <= 0 {
		return fmt.Errorf("harvest.reconcile_workers must be > 0")
	}
	if c.Harvest.MaxPages <= 0 {
		return fmt.Errorf("harvest.max_pages must be > 0")
	}
	if c.HTTP.PoolSize > 0 && c.HTTP.PoolSize < c.Workers() {
		return fmt.Errorf("%w: http.pool_size %d < %d workers",
			httpclient.ErrPoolUndersized, c.HTTP.PoolSize, c.Workers())
	}
	switch c.Normalize.ActorSplitter {
	case "credits", "capitalized":
	default:
		return fmt.Errorf("normalize.actor_splitter must be credits or capitalized")
	}
	switch c.Storage.Backend {
	case "local", "memory":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.TraceSampleRatio < 0 || c.Server.TraceSampleRatio > 1 {
		return fmt.Errorf("server.trace_sample_ratio must be within [0, 1]")
	}
	return nil
}

// RequireTMDB fails when no API key is configured. Commands that reach the
// metadata API call it at startup.
func (c Config) RequireTMDB() error {
	if strings.TrimSpace(c.TMDB.APIKey) == "" {
		return fmt.Errorf("tmdb.api_key is required (set HARVESTER_TMDB_API_KEY)")
	}
	return nil
}

// Workers is the peak number of concurrent upstream callers: the widest
// harvest pool times the runs serve mode executes at once. All of them
// share one upstream client.
func (c Config) Workers() int {
	return max(c.Harvest.EnrichWorkers, c.Harvest.ReconcileWorkers) * max(1, c.Server.Workers)
}

// HTTPClient converts the http section into an httpclient.Config sized for
// the harvest worker pools.
func (c Config) HTTPClient() httpclient.Config {
	return httpclient.Config{
		MaxAttempts:       c.HTTP.MaxAttempts,
		Backoff:           time.Duration(c.HTTP.BackoffMs) * time.Millisecond,
		Exponential:       c.HTTP.Exponential,
		MaxBackoff:        time.Duration(c.HTTP.MaxBackoffMs) * time.Millisecond,
		Timeout:           time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
		RetryableStatuses: c.HTTP.RetryableStatuses,
		MaxConcurrency:    c.Workers(),
		PoolSize:          c.HTTP.PoolSize,
		RequestsPerSecond: c.HTTP.RequestsPerSecond,
		Burst:             c.HTTP.Burst,
		UserAgent:         c.HTTP.UserAgent,
	}
}

// Colly returns the static listing fetcher settings.
func (c Config) Colly() listing.CollyConfig {
	return listing.CollyConfig{
		UserAgent:     c.HTTP.UserAgent,
		RespectRobots: c.Listing.RespectRobots,
		Timeout:       time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
	}
}

// Headless returns the browser listing fetcher settings.
func (c Config) Headless() listing.HeadlessConfig {
	return listing.HeadlessConfig{
		UserAgent:         c.HTTP.UserAgent,
		NavigationTimeout: time.Duration(c.Listing.NavTimeoutSeconds) * time.Second,
		SettleDelay:       time.Duration(c.Listing.SettleMs) * time.Millisecond,
		ReadySelector:     c.Listing.ReadySelector,
	}
}

// ShutdownTimeout bounds graceful server shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}
