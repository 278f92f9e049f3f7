package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/movie-harvester/internal/runs"
)

// RunStore persists run history in Postgres.
type RunStore struct {
	pool   pool
	tables tables
	now    func() time.Time
}

var _ runs.Store = (*RunStore)(nil)

// NewRunStoreWithPool constructs a RunStore over an existing pool. clock may
// be nil.
func NewRunStoreWithPool(p pool, prefix string, clock runs.Clock) (*RunStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if err := checkPrefix(prefix); err != nil {
		return nil, err
	}
	now := func() time.Time { return time.Now().UTC() }
	if clock != nil {
		now = clock.Now
	}
	return &RunStore{pool: p, tables: tables{prefix: prefix}, now: now}, nil
}

// CreateRun inserts a run row.
func (s *RunStore) CreateRun(ctx context.Context, run runs.Run) error {
	params, err := json.Marshal(run.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	counters, err := json.Marshal(run.Counters)
	if err != nil {
		return fmt.Errorf("marshal counters: %w", err)
	}
	artifacts, err := marshalArtifacts(run.Artifacts)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, kind, status, submitted_at, parameters, counters, artifacts)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`, s.tables.runs())
	tag, err := s.pool.Exec(ctx, query,
		run.ID, string(run.Kind), string(run.Status), run.Submitted, params, counters, artifacts)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", run.ID, runs.ErrExists)
	}
	return nil
}

// UpdateRun records a status transition. started_at is set on the first
// transition to running; finished_at on a terminal status.
func (s *RunStore) UpdateRun(
	ctx context.Context,
	id string,
	status runs.Status,
	errText string,
	counters runs.Counters,
	artifacts []string,
) error {
	countersJSON, err := json.Marshal(counters)
	if err != nil {
		return fmt.Errorf("marshal counters: %w", err)
	}
	var artifactsJSON []byte
	if artifacts != nil {
		if artifactsJSON, err = marshalArtifacts(artifacts); err != nil {
			return err
		}
	}
	now := s.now()
	var started, finished *time.Time
	if status == runs.StatusRunning {
		started = &now
	}
	if status.Terminal() {
		finished = &now
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1,
	error_text = NULLIF($2, ''),
	counters = $3,
	artifacts = COALESCE($4, artifacts),
	started_at = COALESCE(started_at, $5),
	finished_at = COALESCE($6, finished_at)
WHERE id = $7`, s.tables.runs())
	tag, err := s.pool.Exec(ctx, query, string(status), errText, countersJSON, artifactsJSON, started, finished, id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", id, runs.ErrNotFound)
	}
	return nil
}

const runColumns = `id, kind, status, submitted_at, started_at, finished_at,
	COALESCE(error_text, ''), parameters, counters, artifacts`

// GetRun fetches one run.
func (s *RunStore) GetRun(ctx context.Context, id string) (runs.Run, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, runColumns, s.tables.runs())
	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return runs.Run{}, fmt.Errorf("run %s: %w", id, runs.ErrNotFound)
	}
	if err != nil {
		return runs.Run{}, fmt.Errorf("select run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs, newest submission first.
func (s *RunStore) ListRuns(ctx context.Context) ([]runs.Run, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY submitted_at DESC, id`, runColumns, s.tables.runs())
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []runs.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (runs.Run, error) {
	var (
		run               runs.Run
		kind, status      string
		params, counters  []byte
		artifacts         []byte
		started, finished *time.Time
	)
	if err := row.Scan(&run.ID, &kind, &status, &run.Submitted, &started, &finished,
		&run.ErrorText, &params, &counters, &artifacts); err != nil {
		return runs.Run{}, err
	}
	run.Kind = runs.Kind(kind)
	run.Status = runs.Status(status)
	run.Started = started
	run.Finished = finished
	if err := json.Unmarshal(params, &run.Parameters); err != nil {
		return runs.Run{}, fmt.Errorf("decode parameters: %w", err)
	}
	if err := json.Unmarshal(counters, &run.Counters); err != nil {
		return runs.Run{}, fmt.Errorf("decode counters: %w", err)
	}
	if err := json.Unmarshal(artifacts, &run.Artifacts); err != nil {
		return runs.Run{}, fmt.Errorf("decode artifacts: %w", err)
	}
	return run, nil
}

func marshalArtifacts(artifacts []string) ([]byte, error) {
	if artifacts == nil {
		artifacts = []string{}
	}
	b, err := json.Marshal(artifacts)
	if err != nil {
		return nil, fmt.Errorf("marshal artifacts: %w", err)
	}
	return b, nil
}
