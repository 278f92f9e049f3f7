// Package api hosts the HTTP server for operator access. Routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/runs to queue a catalog, listing or normalize run.
//   - GET /v1/runs and /v1/runs/{run_id} to inspect runs.
package api
