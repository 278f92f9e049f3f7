package runs

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

// Run statuses.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions happen from s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Kind selects the harvest path a run executes.
type Kind string

// Run kinds.
const (
	// KindCatalog discovers and enriches per language.
	KindCatalog Kind = "catalog"
	// KindListing reconciles the listing page against the catalog.
	KindListing Kind = "listing"
	// KindNormalize reshapes stored exports into the dimensional model.
	KindNormalize Kind = "normalize"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCatalog || k == KindListing || k == KindNormalize
}

// Parameters are the per-run knobs a client may set. Zero values fall back
// to configuration.
type Parameters struct {
	Languages []string `json:"languages,omitempty"`
	Year      int      `json:"year,omitempty"`
	MaxPages  int      `json:"max_pages,omitempty"`
	Load      bool     `json:"load"`
}

// Counters summarize what a run produced.
type Counters struct {
	Candidates int `json:"candidates"`
	Records    int `json:"records"`
	Partial    int `json:"partial"`
	Unmatched  int `json:"unmatched"`
	Facts      int `json:"facts"`
	Skipped    int `json:"skipped"`
}

// Run is the persisted metadata for one submission.
type Run struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Status     Status     `json:"status"`
	Submitted  time.Time  `json:"submitted_at"`
	Started    *time.Time `json:"started_at,omitempty"`
	Finished   *time.Time `json:"finished_at,omitempty"`
	ErrorText  string     `json:"error_text,omitempty"`
	Parameters Parameters `json:"parameters"`
	Counters   Counters   `json:"counters"`
	Artifacts  []string   `json:"artifacts,omitempty"`
}

// QueueItem is a run waiting for execution.
type QueueItem struct {
	RunID  string
	Kind   Kind
	Params Parameters
}

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("run not found")

// ErrExists is returned when creating a run whose id is taken.
var ErrExists = errors.New("run already exists")

// Store persists runs.
type Store interface {
	CreateRun(ctx context.Context, run Run) error
	UpdateRun(ctx context.Context, id string, status Status, errText string, counters Counters, artifacts []string) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
}

// Queue hands queued runs to the runner.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Publisher announces finished runs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Outcome is what executing a run produced.
type Outcome struct {
	Counters  Counters
	Artifacts []string
}

// Executor performs the harvest for one queued run.
type Executor interface {
	Execute(ctx context.Context, item QueueItem) (Outcome, error)
}

// CompletedEvent is published when a run reaches a terminal status.
type CompletedEvent struct {
	RunID     string    `json:"run_id"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Counters  Counters  `json:"counters"`
	Artifacts []string  `json:"artifacts,omitempty"`
	Finished  time.Time `json:"finished_at"`
}

// Attributes are the message attributes subscribers can filter on.
func (e CompletedEvent) Attributes() map[string]string {
	return map[string]string{
		"run_id": e.RunID,
		"kind":   string(e.Kind),
		"status": string(e.Status),
	}
}
