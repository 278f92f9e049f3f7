// Package cmd defines the movie-harvester CLI.
//
// Architecture overview:
//   - One-shot commands: harvest (catalog path), listing (listing path) and
//     normalize build the shared services in internal/app and execute a single
//     run in-process through internal/pipeline.
//   - serve: internal/server wires the HTTP API, a bounded in-memory run queue
//     and a fixed pool of runner workers. Run metadata lives in Postgres when a
//     DSN is configured and in memory otherwise.
//   - Persistence: CSV and JSON artifacts go to the configured blob store
//     (memory, local, GCS or S3); the dimensional model is bulk loaded into
//     Postgres with COPY when --load is set.
//   - Configuration: Viper reads an optional file plus HARVESTER_* env vars;
//     zap provides structured logging; Prometheus metrics are served on
//     /metrics by serve.
//
// Quick checklist:
//   - Set HARVESTER_TMDB_API_KEY for harvest and listing.
//   - Set HARVESTER_DB_DSN to enable --load and persistent runs.
//   - Run locally: go run . harvest --languages ko,ja --year 2024
package cmd
