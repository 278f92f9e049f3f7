package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/id/uuid"
	"github.com/JakeFAU/movie-harvester/internal/metrics"
	"github.com/JakeFAU/movie-harvester/internal/middleware"
	"github.com/JakeFAU/movie-harvester/internal/runs"
)

// Pinger reports whether a downstream dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the run store and queue.
type Server struct {
	router chi.Router
	store  runs.Store
	queue  runs.Queue
	idGen  runs.IDGenerator
	clock  runs.Clock
	ready  []Pinger
	logger *zap.Logger
}

// Config controls request handling.
type Config struct {
	// RequestTimeout bounds each request. Zero uses 60s.
	RequestTimeout time.Duration
	// EnqueueTimeout bounds the wait for queue capacity. Zero uses 5s.
	EnqueueTimeout time.Duration
}

// NewServer constructs a Server with middleware and routes. Every pinger is
// checked by /readyz.
func NewServer(
	store runs.Store,
	queue runs.Queue,
	idGen runs.IDGenerator,
	clock runs.Clock,
	cfg Config,
	logger *zap.Logger,
	ready ...Pinger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 5 * time.Second
	}
	s := &Server{
		store:  store,
		queue:  queue,
		idGen:  idGen,
		clock:  clock,
		ready:  ready,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Trace)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Metrics)
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/runs", func(r chi.Router) {
		r.Post("/", s.submitRun(cfg.EnqueueTimeout))
		r.Get("/", s.listRuns)
		r.Get("/{run_id}", s.getRun)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	for _, p := range s.ready {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitRunRequest struct {
	Kind       runs.Kind       `json:"kind"`
	Parameters runs.Parameters `json:"parameters"`
}

func (s *Server) submitRun(enqueueTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if !req.Kind.Valid() {
			writeError(w, http.StatusBadRequest, "kind must be one of catalog, listing, normalize")
			return
		}
		if req.Parameters.Year < 0 || req.Parameters.MaxPages < 0 {
			writeError(w, http.StatusBadRequest, "year and max_pages must not be negative")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), enqueueTimeout)
		defer cancel()
		run, err := runs.Submit(ctx, s.store, s.queue, s.idGen, s.clock, req.Kind, req.Parameters)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusServiceUnavailable
			}
			s.logger.Error("submit run failed", zap.Error(err))
			writeError(w, status, err.Error())
			return
		}
		s.logger.Info("run queued", zap.String("run_id", run.ID), zap.String("kind", string(run.Kind)))
		writeJSON(w, http.StatusAccepted, map[string]any{"run": run})
	}
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if !uuid.Valid(runID) {
		writeError(w, http.StatusBadRequest, "malformed run id")
		return
	}
	run, err := s.store.GetRun(r.Context(), runID)
	if errors.Is(err, runs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("get run failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if list == nil {
		list = []runs.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": list})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
