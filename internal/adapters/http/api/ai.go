package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/proctor/internal/domain/types"
)

func (s *Server) serveAnalysis(w http.ResponseWriter, r *http.Request, op string,
	run func(ctx context.Context, id string) (types.Analysis, error)) {
	a, err := run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleAnalysis handles GET /api/ai/student/{id}/analysis.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	s.serveAnalysis(w, r, "api.analysis", s.deps.Analysis)
}

// handleAnalyze handles POST /api/ai/analyze/{id}.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.serveAnalysis(w, r, "api.analyze", s.deps.Analyze)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Status(r.Context())
	if err != nil {
		fail(w, Wrap("api.status", err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.StartMonitoring(r.Context()); err != nil {
		fail(w, Wrap("api.start_monitoring", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isMonitoring": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.deps.StopMonitoring(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"isMonitoring": false})
}
