// Package server assembles and runs the long-lived harvest service: the HTTP
// API, the run queue and the runner workers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/api"
	"github.com/JakeFAU/movie-harvester/internal/app"
	"github.com/JakeFAU/movie-harvester/internal/clock/system"
	"github.com/JakeFAU/movie-harvester/internal/config"
	"github.com/JakeFAU/movie-harvester/internal/id/uuid"
	memorypublisher "github.com/JakeFAU/movie-harvester/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/movie-harvester/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/movie-harvester/internal/queue/memory"
	"github.com/JakeFAU/movie-harvester/internal/runs"
	memoryStorage "github.com/JakeFAU/movie-harvester/internal/storage/memory"
	pgstore "github.com/JakeFAU/movie-harvester/internal/storage/postgres"
	"github.com/JakeFAU/movie-harvester/internal/telemetry"
)

const (
	serviceName = "movie-harvester"
	// localEventTopic names completion events kept in memory when no
	// Pub/Sub topic is configured.
	localEventTopic = "harvest-runs"
)

// Server contains the service's dependencies.
type Server struct {
	cfg          config.Config
	logger       *zap.Logger
	services     *app.App
	apiServer    *api.Server
	runner       *runs.Runner
	queue        *queueMemory.Queue
	store        runs.Store
	pubsubClient *pubsub.Client
	pubsubTopic  *pubsub.Topic
	events       *memorypublisher.Publisher
	tracer       *sdktrace.TracerProvider
}

// Build creates the service's dependencies.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Options{
		ServiceName: serviceName,
		SampleRatio: cfg.Server.TraceSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	s.tracer = tp

	s.services, err = app.New(ctx, cfg, logger)
	if err != nil {
		s.closeObservability(ctx)
		return nil, err
	}

	clock := system.New()
	if err := s.setupRunStore(clock); err != nil {
		s.Close(ctx)
		return nil, err
	}

	publisher, err := s.setupPublisher(ctx)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}

	s.queue = queueMemory.NewQueue(cfg.Server.QueueDepth)
	s.runner = runs.NewRunner(
		s.queue,
		s.store,
		s.services.Pipeline(),
		publisher,
		clock,
		runs.RunnerConfig{Workers: cfg.Server.Workers, Topic: s.eventTopic()},
		logger.Named("runner"),
	)
	logger.Info("runner configured",
		zap.Int("workers", cfg.Server.Workers),
		zap.Int("queue_depth", cfg.Server.QueueDepth),
	)

	var ready []api.Pinger
	if sink := s.services.Sink(); sink != nil {
		ready = append(ready, sink)
	}
	s.apiServer = api.NewServer(
		s.store,
		s.queue,
		uuid.New(),
		clock,
		api.Config{},
		logger.Named("api"),
		ready...,
	)
	return s, nil
}

// Handler exposes the API router.
func (s *Server) Handler() http.Handler {
	return s.apiServer.Handler()
}

// Run starts the runner and the HTTP server and blocks until ctx is canceled
// or a termination signal arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		s.logger.Info("runner started")
		s.runner.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("http server started", zap.Int("port", s.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	s.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown error", zap.Error(err))
	}
	select {
	case <-runnerDone:
	case <-shutdownCtx.Done():
		s.logger.Warn("runner did not stop before the shutdown deadline")
	}

	s.Close(shutdownCtx)
	return nil
}

// Close releases every dependency.
func (s *Server) Close(ctx context.Context) {
	if s.queue != nil {
		s.queue.Close()
	}
	s.closeInfrastructure()
	s.closeObservability(ctx)
	s.logger.Info("shutdown complete")
}

func (s *Server) closeInfrastructure() {
	if s.pubsubTopic != nil {
		s.pubsubTopic.Stop()
	}
	if s.pubsubClient != nil {
		if err := s.pubsubClient.Close(); err != nil {
			s.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if s.services != nil {
		s.services.Close()
	}
}

func (s *Server) closeObservability(ctx context.Context) {
	if s.tracer != nil {
		if err := s.tracer.Shutdown(ctx); err != nil {
			s.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	// Sync fails on non-file sinks like stderr; nothing useful to do about it.
	_ = s.logger.Sync()
}

func (s *Server) setupRunStore(clock runs.Clock) error {
	pool := s.services.Pool()
	if pool == nil {
		s.logger.Info("using in-memory run store")
		s.store = memoryStorage.NewRunStore(clock)
		return nil
	}
	store, err := pgstore.NewRunStoreWithPool(pool, s.cfg.DB.TablePrefix, clock)
	if err != nil {
		return fmt.Errorf("run store init failed: %w", err)
	}
	s.logger.Info("using postgres run store")
	s.store = store
	return nil
}

func (s *Server) eventTopic() string {
	if s.cfg.PubSub.Enabled() {
		return s.cfg.PubSub.TopicName
	}
	return localEventTopic
}

func (s *Server) setupPublisher(ctx context.Context) (runs.Publisher, error) {
	if !s.cfg.PubSub.Enabled() {
		s.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		s.events = memorypublisher.New()
		return s.events, nil
	}
	var err error
	s.pubsubClient, err = pubsub.NewClient(ctx, s.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	s.pubsubTopic = s.pubsubClient.Topic(s.cfg.PubSub.TopicName)
	s.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", s.cfg.PubSub.ProjectID),
		zap.String("topic", s.cfg.PubSub.TopicName),
	)
	return gcppublisher.New(s.pubsubTopic), nil
}
