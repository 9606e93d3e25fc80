// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/types"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultEventLimit = 50

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Subjects(ctx context.Context) ([]model.Subject, error)
	Events(ctx context.Context, subjectID string, limit int) ([]model.Event, error)
	Stats(ctx context.Context) (model.DashboardStats, error)
	SubmitEvent(ctx context.Context, e model.Event) (model.Event, error)

	Analysis(ctx context.Context, subjectID string) (types.Analysis, error)
	Analyze(ctx context.Context, subjectID string) (types.Analysis, error)
	Status(ctx context.Context) (types.SystemStatus, error)
	StartMonitoring(ctx context.Context) error
	StopMonitoring(ctx context.Context)

	DeactivateSubject(ctx context.Context, id string) error
	ResetSubject(ctx context.Context, id string) (model.Subject, error)
	DeleteEvent(ctx context.Context, id string) error
	DeleteAllEvents(ctx context.Context) (int, error)
}

// StatsProvider exposes service internals on the health endpoint.
type StatsProvider interface {
	GetStats() map[string]any
}

// Server wires HTTP routes for the monitoring API.
type Server struct {
	deps   Dependencies
	stats  StatsProvider
	live   http.Handler
	logger logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLiveChannel mounts h on /ws.
func WithLiveChannel(h http.Handler) Option {
	return func(s *Server) { s.live = h }
}

// WithStatsProvider adds service internals to /api/health.
func WithStatsProvider(p StatsProvider) Option {
	return func(s *Server) { s.stats = p }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{deps: deps}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.Named("http")
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/api/health", MetricsMiddleware(s.handleHealth, "health"))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	if s.live != nil {
		r.Method(http.MethodGet, "/ws", s.live)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/students", MetricsMiddleware(s.handleSubjects, "students"))
		r.Get("/events", MetricsMiddleware(s.handleListEvents, "events"))
		r.Post("/events", MetricsMiddleware(s.handlePostEvent, "events"))
		r.Get("/stats", MetricsMiddleware(s.handleStats, "stats"))

		r.Route("/ai", func(r chi.Router) {
			r.Get("/student/{id}/analysis", MetricsMiddleware(s.handleAnalysis, "ai_analysis"))
			r.Post("/analyze/{id}", MetricsMiddleware(s.handleAnalyze, "ai_analyze"))
			r.Get("/status", MetricsMiddleware(s.handleStatus, "ai_status"))
			r.Post("/start", MetricsMiddleware(s.handleStart, "ai_start"))
			r.Post("/stop", MetricsMiddleware(s.handleStop, "ai_stop"))
		})

		r.Route("/god", func(r chi.Router) {
			r.Delete("/students/{id}", MetricsMiddleware(s.handleDeactivate, "god_students"))
			r.Post("/students/{id}/reset", MetricsMiddleware(s.handleReset, "god_reset"))
			r.Delete("/events/{id}", MetricsMiddleware(s.handleDeleteEvent, "god_events"))
			r.Delete("/events", MetricsMiddleware(s.handleDeleteAllEvents, "god_events"))
		})
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail picks the status from err's kind.
func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
