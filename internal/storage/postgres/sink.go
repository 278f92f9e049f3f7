package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/movie"
	"github.com/JakeFAU/movie-harvester/internal/normalize"
)

// Sink bulk loads normalized output.
type Sink struct {
	pool   pool
	tables tables
	logger *zap.Logger
}

// NewSinkWithPool constructs a Sink over an existing pool (primarily for
// testing).
func NewSinkWithPool(p pool, prefix string, logger *zap.Logger) (*Sink, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if err := checkPrefix(prefix); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{pool: p, tables: tables{prefix: prefix}, logger: logger}, nil
}

// Close releases the pool.
func (s *Sink) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks connectivity.
func (s *Sink) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates missing tables.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.tables.statements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LoadStats reports rows copied per table.
type LoadStats map[string]int64

// Load replaces the dimensional model with result in one transaction:
// every table is truncated and then refilled with COPY.
func (s *Sink) Load(ctx context.Context, result normalize.Result) (stats LoadStats, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin load: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback load: %w", rbErr))
		}
	}()

	truncate := "TRUNCATE " + strings.Join(s.tables.all(), ", ")
	if _, err = tx.Exec(ctx, truncate); err != nil {
		return nil, fmt.Errorf("truncate: %w", err)
	}

	stats = make(LoadStats)
	copyTable := func(table string, columns []string, rows [][]any) error {
		n, cerr := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		if cerr != nil {
			return fmt.Errorf("copy %s: %w", table, cerr)
		}
		stats[table] = n
		return nil
	}

	for _, kind := range movie.DimensionKinds {
		if err = copyTable(s.tables.dimension(kind), []string{"id", "name"}, dimensionRows(result.Dimensions[kind])); err != nil {
			return nil, err
		}
	}
	if err = copyTable(s.tables.date(), dateColumns, dateRows(result.Dates)); err != nil {
		return nil, err
	}
	if err = copyTable(s.tables.fact(), factColumns, factRows(result.Facts)); err != nil {
		return nil, err
	}
	for _, kind := range movie.DimensionKinds {
		if err = copyTable(s.tables.bridge(kind), bridgeColumns(kind), bridgeRows(result.Bridges[kind])); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit load: %w", err)
	}
	s.logger.Info("dimensional model loaded",
		zap.Int("facts", len(result.Facts)),
		zap.Int("tables", len(stats)),
	)
	return stats, nil
}

func dimensionRows(entities []movie.DimensionEntity) [][]any {
	rows := make([][]any, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, []any{e.ID, e.Name})
	}
	return rows
}

func dateRows(dates []movie.DateDimension) [][]any {
	rows := make([][]any, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, []any{isoDate(d.ReleaseDate), d.Year, d.Month, d.Day})
	}
	return rows
}

func factRows(facts []movie.FactRow) [][]any {
	rows := make([][]any, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, []any{
			f.FactID,
			f.TMDBID,
			f.Title,
			f.Budget,
			f.Revenue,
			f.Rating,
			f.VoteCount,
			isoDate(f.ReleaseDate),
			f.OriginalLanguage,
			f.Runtime,
			f.Source,
		})
	}
	return rows
}

func bridgeRows(bridges []movie.BridgeRow) [][]any {
	rows := make([][]any, 0, len(bridges))
	for _, b := range bridges {
		rows = append(rows, []any{b.FactID, b.DimensionID})
	}
	return rows
}

// isoDate returns a nil-able date value for the DATE columns.
func isoDate(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &t
}
