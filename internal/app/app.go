// Package app initializes and holds long-lived application services, acting
// as the dependency container shared by the CLI commands and the server.
package app

import (
	"context"
	"fmt"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/config"
	"github.com/JakeFAU/movie-harvester/internal/httpclient"
	"github.com/JakeFAU/movie-harvester/internal/listing"
	"github.com/JakeFAU/movie-harvester/internal/normalize"
	"github.com/JakeFAU/movie-harvester/internal/pipeline"
	"github.com/JakeFAU/movie-harvester/internal/storage"
	gcsstorage "github.com/JakeFAU/movie-harvester/internal/storage/gcs"
	localstorage "github.com/JakeFAU/movie-harvester/internal/storage/local"
	memoryStorage "github.com/JakeFAU/movie-harvester/internal/storage/memory"
	pgstore "github.com/JakeFAU/movie-harvester/internal/storage/postgres"
	s3storage "github.com/JakeFAU/movie-harvester/internal/storage/s3"
	"github.com/JakeFAU/movie-harvester/internal/tmdb"
)

// App holds the shared services: the blob store, the optional database
// pool and sink, the listing page fetcher and the pipeline built on them.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	blobs    storage.BlobStore
	gcs      *gcsclient.Client
	pool     *pgxpool.Pool
	sink     *pgstore.Sink
	headless *listing.HeadlessFetcher
	pipeline *pipeline.Pipeline
}

// New builds every service cfg enables. It fails fast when a configured
// backend cannot be reached. The metadata API client is only built when an
// api key is configured, so normalize-only use needs no key.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	var err error
	if a.blobs, err = a.setupStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err = a.setupDatabase(ctx); err != nil {
		a.Close()
		return nil, err
	}
	upstream, err := a.setupUpstream()
	if err != nil {
		a.Close()
		return nil, err
	}
	pages, err := a.setupListingFetcher()
	if err != nil {
		a.Close()
		return nil, err
	}

	var loader pipeline.Loader
	if a.sink != nil {
		loader = a.sink
	}
	a.pipeline = pipeline.New(upstream, pages, a.blobs, loader, pipeline.Settings{
		Languages:        cfg.Harvest.Languages,
		Year:             cfg.Harvest.Year,
		MaxPages:         cfg.Harvest.MaxPages,
		EnrichWorkers:    cfg.Harvest.EnrichWorkers,
		ReconcileWorkers: cfg.Harvest.ReconcileWorkers,
		ListingURL:       cfg.Listing.URL,
		Prefix:           cfg.Output.Prefix,
		SkipUnchanged:    cfg.Normalize.SkipUnchanged,
		Actors:           ActorSplitter(cfg.Normalize.ActorSplitter),
	}, logger.Named("pipeline"))

	logger.Info("application services initialized",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("database", a.sink != nil),
		zap.Bool("metadata_api", upstream != nil),
		zap.Bool("headless", cfg.Listing.Headless),
	)
	return a, nil
}

// ActorSplitter maps the configured splitter name to an implementation.
func ActorSplitter(name string) normalize.ActorNameSplitter {
	if name == "capitalized" {
		return normalize.CapitalizedRunSplitter{}
	}
	return normalize.CreditSplitter{}
}

// Pipeline returns the run executor.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Blobs returns the configured blob store.
func (a *App) Blobs() storage.BlobStore {
	return a.blobs
}

// Pool returns the database pool, or nil when no DSN is configured.
func (a *App) Pool() *pgxpool.Pool {
	return a.pool
}

// Sink returns the relational sink, or nil when no DSN is configured.
func (a *App) Sink() *pgstore.Sink {
	return a.sink
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Close releases every service that holds a connection or a process.
func (a *App) Close() {
	if a.headless != nil {
		a.headless.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
}

func (a *App) setupStorage(ctx context.Context) (storage.BlobStore, error) {
	cfg := a.cfg.Storage
	switch cfg.Backend {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcs = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{Bucket: cfg.GCSBucket, Prefix: cfg.Prefix})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Info("using GCS storage backend", zap.String("bucket", cfg.GCSBucket))
		return blobs, nil
	case "s3":
		blobs, err := s3storage.New(ctx, s3storage.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 blob store init failed: %w", err)
		}
		a.logger.Info("using S3 storage backend", zap.String("bucket", cfg.S3.Bucket))
		return blobs, nil
	case "local":
		blobs, err := localstorage.New(localstorage.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local storage backend", zap.String("path", cfg.LocalDir))
		return blobs, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memoryStorage.NewBlobStore(), nil
	}
}

func (a *App) setupDatabase(ctx context.Context) error {
	cfg := a.cfg.DB
	if !cfg.Enabled() {
		a.logger.Warn("no DSN specified for database, loading and persistent runs are disabled")
		return nil
	}
	pool, err := pgstore.Open(ctx, pgstore.Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: time.Duration(cfg.MaxConnLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	a.pool = pool
	a.sink, err = pgstore.NewSinkWithPool(pool, cfg.TablePrefix, a.logger.Named("sink"))
	if err != nil {
		return fmt.Errorf("sink init failed: %w", err)
	}
	if err := a.sink.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if cfg.EnsureSchema {
		if err := a.sink.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	a.logger.Info("database initialized", zap.String("table_prefix", cfg.TablePrefix))
	return nil
}

// setupUpstream returns a nil Upstream when no api key is configured.
func (a *App) setupUpstream() (pipeline.Upstream, error) {
	if a.cfg.RequireTMDB() != nil {
		a.logger.Warn("no metadata API key configured, catalog and listing runs are disabled")
		return nil, nil
	}
	fetcher, err := httpclient.New(a.cfg.HTTPClient(), a.logger.Named("httpclient"))
	if err != nil {
		return nil, fmt.Errorf("http client init failed: %w", err)
	}
	client, err := tmdb.New(fetcher, a.cfg.TMDB.APIKey, a.cfg.TMDB.BaseURL, a.cfg.TMDB.Language)
	if err != nil {
		return nil, fmt.Errorf("tmdb client init failed: %w", err)
	}
	return client, nil
}

func (a *App) setupListingFetcher() (listing.Fetcher, error) {
	if !a.cfg.Listing.Headless {
		a.logger.Info("using colly listing fetcher", zap.Bool("respect_robots", a.cfg.Listing.RespectRobots))
		return listing.NewColly(a.cfg.Colly()), nil
	}
	headless, err := listing.NewHeadless(a.cfg.Headless())
	if err != nil {
		return nil, fmt.Errorf("headless fetcher init failed: %w", err)
	}
	a.headless = headless
	a.logger.Info("using headless listing fetcher",
		zap.Duration("nav_timeout", a.cfg.Headless().NavigationTimeout))
	return headless, nil
}
