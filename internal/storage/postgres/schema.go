package postgres

import (
	"fmt"

	"github.com/JakeFAU/movie-harvester/internal/movie"
)

// tables names every table the sink owns for one prefix.
type tables struct {
	prefix string
}

func (t tables) dimension(kind movie.DimensionKind) string {
	return t.prefix + "dim_" + string(kind)
}

func (t tables) bridge(kind movie.DimensionKind) string {
	return t.prefix + "bridge_movie_" + string(kind)
}

func (t tables) fact() string { return t.prefix + "fact_movie" }

func (t tables) date() string { return t.prefix + "dim_date" }

func (t tables) runs() string { return t.prefix + "harvest_runs" }

// all lists the load tables, dimensions before the tables referencing them.
func (t tables) all() []string {
	out := make([]string, 0, 2*len(movie.DimensionKinds)+2)
	for _, kind := range movie.DimensionKinds {
		out = append(out, t.dimension(kind))
	}
	out = append(out, t.date(), t.fact())
	for _, kind := range movie.DimensionKinds {
		out = append(out, t.bridge(kind))
	}
	return out
}

var factColumns = []string{
	"fact_id", "tmdb_id", "title", "budget", "revenue", "rating",
	"vote_count", "release_date", "original_language", "runtime", "source",
}

var dateColumns = []string{"release_date", "year", "month", "day"}

func bridgeColumns(kind movie.DimensionKind) []string {
	return []string{"fact_id", string(kind) + "_id"}
}

// statements returns the DDL executed by EnsureSchema, in order.
func (t tables) statements() []string {
	stmts := make([]string, 0, len(movie.DimensionKinds)*2+3)
	for _, kind := range movie.DimensionKinds {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL
)`, t.dimension(kind)))
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	release_date DATE PRIMARY KEY,
	year INTEGER NOT NULL,
	month INTEGER NOT NULL,
	day INTEGER NOT NULL
)`, t.date()))
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	fact_id BIGINT PRIMARY KEY,
	tmdb_id BIGINT NOT NULL,
	title TEXT NOT NULL,
	budget BIGINT,
	revenue BIGINT,
	rating DOUBLE PRECISION,
	vote_count BIGINT,
	release_date DATE,
	original_language TEXT,
	runtime INTEGER,
	source TEXT NOT NULL
)`, t.fact()))
	for _, kind := range movie.DimensionKinds {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	fact_id BIGINT NOT NULL,
	%s_id BIGINT NOT NULL
)`, t.bridge(kind), kind))
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	finished_at TIMESTAMPTZ,
	error_text TEXT,
	parameters JSONB NOT NULL,
	counters JSONB NOT NULL,
	artifacts JSONB NOT NULL
)`, t.runs()))
	return stmts
}
