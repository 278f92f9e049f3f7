// Package worker runs per-item fetch tasks on a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/metrics"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker pool closed")

// Task produces one result. It must not panic.
type Task[T any] func(ctx context.Context) T

// Pool fans submitted tasks out to Width goroutines and delivers results on
// a single channel in completion order.
type Pool[T any] struct {
	width   int
	tasks   chan Task[T]
	results chan T
	logger  *zap.Logger

	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	closeOnce sync.Once
}

// New creates a pool with width workers. width < 1 is treated as 1.
func New[T any](width int, logger *zap.Logger) *Pool[T] {
	if width < 1 {
		width = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool[T]{
		width:   width,
		tasks:   make(chan Task[T], width),
		results: make(chan T, width),
		logger:  logger,
	}
}

// Width reports the number of workers.
func (p *Pool[T]) Width() int {
	return p.width
}

// Start launches the workers. Calling it more than once is a no-op.
func (p *Pool[T]) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.logger.Debug("starting worker pool", zap.Int("width", p.width))
		p.wg.Add(p.width)
		for i := 0; i < p.width; i++ {
			go p.run(ctx)
		}
		go func() {
			p.wg.Wait()
			close(p.results)
		}()
	})
}

func (p *Pool[T]) run(ctx context.Context) {
	defer p.wg.Done()
	for task := range p.tasks {
		metrics.IncActiveWorkers()
		result := task(ctx)
		metrics.DecActiveWorkers()
		p.results <- result
	}
}

// Submit queues task, blocking while every worker is busy and the queue is
// full. Results must be drained concurrently or Submit can block forever.
func (p *Pool[T]) Submit(ctx context.Context, task Task[T]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks. Results is closed once queued tasks finish.
// A pool that was never started is started here so queued tasks still
// produce results and Results is always closed.
func (p *Pool[T]) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.Start(context.Background())
	})
}

// Results delivers one value per submitted task.
func (p *Pool[T]) Results() <-chan T {
	return p.results
}

// Map runs fn over items on a pool of the given width and returns the results
// in completion order. Items not submitted before ctx ends produce no result.
func Map[In, Out any](ctx context.Context, width int, logger *zap.Logger, items []In, fn func(context.Context, In) Out) []Out {
	pool := New[Out](width, logger)
	pool.Start(ctx)

	go func() {
		defer pool.Close()
		for _, item := range items {
			item := item
			if err := pool.Submit(ctx, func(ctx context.Context) Out { return fn(ctx, item) }); err != nil {
				pool.logger.Warn("stopped submitting tasks", zap.Error(err))
				return
			}
		}
	}()

	out := make([]Out, 0, len(items))
	for result := range pool.Results() {
		out = append(out, result)
	}
	return out
}
