package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/movie-harvester/internal/runs"
)

// RunStore provides an in-memory run registry.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]runs.Run
	now  func() time.Time
}

var _ runs.Store = (*RunStore)(nil)

// NewRunStore constructs a RunStore. clock may be nil.
func NewRunStore(clock runs.Clock) *RunStore {
	now := func() time.Time { return time.Now().UTC() }
	if clock != nil {
		now = clock.Now
	}
	return &RunStore{
		runs: make(map[string]runs.Run),
		now:  now,
	}
}

// CreateRun stores a new run.
func (s *RunStore) CreateRun(_ context.Context, run runs.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s: %w", run.ID, runs.ErrExists)
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

// UpdateRun updates the status, counters and artifacts for a run.
func (s *RunStore) UpdateRun(
	_ context.Context,
	id string,
	status runs.Status,
	errText string,
	counters runs.Counters,
	artifacts []string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %s: %w", id, runs.ErrNotFound)
	}
	run.Status = status
	run.ErrorText = errText
	run.Counters = counters
	if artifacts != nil {
		run.Artifacts = append([]string(nil), artifacts...)
	}
	now := s.now()
	if status == runs.StatusRunning && run.Started == nil {
		run.Started = pointerTime(now)
	}
	if status.Terminal() {
		run.Finished = pointerTime(now)
	}
	s.runs[id] = run
	return nil
}

// GetRun fetches a run by id.
func (s *RunStore) GetRun(_ context.Context, id string) (runs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return runs.Run{}, fmt.Errorf("run %s: %w", id, runs.ErrNotFound)
	}
	return cloneRun(run), nil
}

// ListRuns returns all runs, newest submission first.
func (s *RunStore) ListRuns(_ context.Context) ([]runs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]runs.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, cloneRun(run))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Submitted.Equal(out[j].Submitted) {
			return out[i].ID < out[j].ID
		}
		return out[i].Submitted.After(out[j].Submitted)
	})
	return out, nil
}

func cloneRun(run runs.Run) runs.Run {
	run.Artifacts = append([]string(nil), run.Artifacts...)
	run.Parameters.Languages = append([]string(nil), run.Parameters.Languages...)
	return run
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
