// Package api provides the HTTP server for peersearch.
// It exposes the overlay, runs searches, and streams search traces for
// presentation clients that render progress step by step.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tutu-network/peersearch/internal/domain"
	"github.com/tutu-network/peersearch/internal/health"
	"github.com/tutu-network/peersearch/internal/search"
)

// Defaults fill in search request fields a client leaves out.
type Defaults struct {
	TTL      int
	Strategy domain.Strategy
	Seed     *int64
}

// Server is the peersearch HTTP API server.
//
// Searches mutate the peer caches of the shared overlay, so every engine
// call and every cache read happens under mu.
type Server struct {
	mu             sync.Mutex
	engine         *search.Engine
	runs           domain.RunStore // nil disables /api/runs
	defaults       Defaults
	logger         *zap.Logger
	metricsEnabled bool
	corsOrigins    []string
	health         HealthSource
}

// HealthSource reports the latest self-check results.
type HealthSource interface {
	Statuses() []health.Status
	IsHealthy() bool
}

// NewServer creates a new API server. runs may be nil.
func NewServer(engine *search.Engine, runs domain.RunStore, defaults Defaults, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:      engine,
		runs:        runs,
		defaults:    defaults,
		logger:      logger.Named("api"),
		corsOrigins: []string{"*"},
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth makes /health report the checks of h.
func (s *Server) SetHealth(h HealthSource) { s.health = h }

// Locker returns the lock that serializes access to the overlay. Anything
// else reading peer caches while the server runs must hold it.
func (s *Server) Locker() sync.Locker { return &s.mu }

// SetCORSOrigins sets the allowed CORS origins.
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/overlay", s.handleOverlay)
		r.Get("/peers", s.handleListPeers)
		r.Get("/peers/{id}", s.handleGetPeer)
		r.Get("/strategies", s.handleStrategies)
		r.Post("/search", s.handleSearch)
		r.Post("/trace", s.handleTrace)

		if s.runs != nil {
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/summary", s.handleRunSummary)
		}
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// statusFor maps search errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownPeer):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownStrategy), errors.Is(err, domain.ErrInvalidTTL):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for browser-based visualizers.
// Access-Control-Allow-Origin carries a single origin, so the request's
// Origin is echoed back when it is allowed.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.corsOrigins))
	for _, o := range s.corsOrigins {
		allowed[strings.TrimSpace(o)] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		switch origin := r.Header.Get("Origin"); {
		case allowed["*"]:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		default:
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
