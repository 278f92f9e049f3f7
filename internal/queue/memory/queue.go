// Package memory is the in-process run queue used by serve mode.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/movie-harvester/internal/runs"
)

// ErrClosed is returned by Enqueue after Close, and by Dequeue once the
// queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded FIFO of queued runs. A capacity of zero makes Enqueue
// wait for a ready worker.
type Queue struct {
	items     chan runs.QueueItem
	done      chan struct{}
	closeOnce sync.Once
}

var _ runs.Queue = (*Queue)(nil)

// NewQueue builds a queue holding up to capacity pending runs.
func NewQueue(capacity int) *Queue {
	return &Queue{
		items: make(chan runs.QueueItem, max(capacity, 0)),
		done:  make(chan struct{}),
	}
}

// Enqueue waits for room, ctx, or Close, whichever comes first.
func (q *Queue) Enqueue(ctx context.Context, item runs.QueueItem) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.items <- item:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("queue run %s: %w", item.RunID, ctx.Err())
	}
}

// Dequeue returns the oldest pending run. Runs queued before Close are
// still handed out.
func (q *Queue) Dequeue(ctx context.Context) (runs.QueueItem, error) {
	select {
	case item := <-q.items:
		return item, nil
	case <-ctx.Done():
		return runs.QueueItem{}, fmt.Errorf("dequeue run: %w", ctx.Err())
	case <-q.done:
		select {
		case item := <-q.items:
			return item, nil
		default:
			return runs.QueueItem{}, ErrClosed
		}
	}
}

// Len reports the number of pending runs.
func (q *Queue) Len() int {
	return len(q.items)
}

// Close stops accepting runs. It is safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
