package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	tracerName      = "github.com/JakeFAU/movie-harvester/internal/runs"
	finalizeTimeout = 10 * time.Second
)

// Runner dequeues runs and executes them one at a time per worker.
type Runner struct {
	queue     Queue
	store     Store
	executor  Executor
	publisher Publisher
	clock     Clock
	topic     string
	workers   int
	logger    *zap.Logger
}

// RunnerConfig controls a Runner.
type RunnerConfig struct {
	// Workers is the number of runs executed concurrently.
	Workers int
	// Topic receives a CompletedEvent per finished run. Empty disables
	// publishing.
	Topic string
}

// NewRunner wires a Runner. publisher may be nil.
func NewRunner(
	queue Queue,
	store Store,
	executor Executor,
	publisher Publisher,
	clock Clock,
	cfg RunnerConfig,
	logger *zap.Logger,
) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		queue:     queue,
		store:     store,
		executor:  executor,
		publisher: publisher,
		clock:     clock,
		topic:     cfg.Topic,
		workers:   cfg.Workers,
		logger:    logger,
	}
}

// Run starts the workers and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context) {
	for {
		item, err := r.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("dequeue failed", zap.Error(err))
			return
		}
		r.Process(ctx, item)
	}
}

// Process executes one run and records its terminal status.
func (r *Runner) Process(ctx context.Context, item QueueItem) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "runs.Process")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", item.RunID),
		attribute.String("run.kind", string(item.Kind)),
	)
	log := r.logger.With(zap.String("run_id", item.RunID), zap.String("kind", string(item.Kind)))
	if err := r.store.UpdateRun(ctx, item.RunID, StatusRunning, "", Counters{}, nil); err != nil {
		log.Error("mark run running", zap.Error(err))
		return
	}
	log.Info("run started")

	outcome, execErr := r.executor.Execute(ctx, item)
	status := StatusSucceeded
	errText := ""
	if execErr != nil {
		status = StatusFailed
		errText = execErr.Error()
		span.RecordError(execErr)
		span.SetStatus(codes.Error, errText)
		log.Error("run failed", zap.Error(execErr))
	} else {
		log.Info("run succeeded",
			zap.Int("records", outcome.Counters.Records),
			zap.Int("facts", outcome.Counters.Facts),
		)
	}

	// Record the terminal status even when shutdown canceled ctx mid-run.
	final, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := r.store.UpdateRun(final, item.RunID, status, errText, outcome.Counters, outcome.Artifacts); err != nil {
		log.Error("record run status", zap.Error(err))
	}
	if err := r.publish(final, item, status, errText, outcome); err != nil {
		log.Warn("publish run event", zap.Error(err))
	}
}

func (r *Runner) publish(ctx context.Context, item QueueItem, status Status, errText string, outcome Outcome) error {
	if r.publisher == nil || r.topic == "" {
		return nil
	}
	event := CompletedEvent{
		RunID:     item.RunID,
		Kind:      item.Kind,
		Status:    status,
		Error:     errText,
		Counters:  outcome.Counters,
		Artifacts: outcome.Artifacts,
		Finished:  r.clock.Now(),
	}
	if _, err := r.publisher.Publish(ctx, r.topic, event); err != nil {
		return fmt.Errorf("publish %s: %w", r.topic, err)
	}
	return nil
}

// Submit creates a queued run and enqueues it.
func Submit(ctx context.Context, store Store, queue Queue, ids IDGenerator, clock Clock, kind Kind, params Parameters) (Run, error) {
	if !kind.Valid() {
		return Run{}, fmt.Errorf("unknown run kind %q", kind)
	}
	id, err := ids.NewID()
	if err != nil {
		return Run{}, fmt.Errorf("generate run id: %w", err)
	}
	run := Run{
		ID:         id,
		Kind:       kind,
		Status:     StatusQueued,
		Submitted:  clock.Now(),
		Parameters: params,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	if err := queue.Enqueue(ctx, QueueItem{RunID: id, Kind: kind, Params: params}); err != nil {
		// ctx may already be past its deadline; the failure must still land.
		if uerr := store.UpdateRun(context.WithoutCancel(ctx), id, StatusFailed, err.Error(), Counters{}, nil); uerr != nil {
			err = errors.Join(err, uerr)
		}
		return Run{}, fmt.Errorf("enqueue run: %w", err)
	}
	return run, nil
}
