package api

import (
	"net/http"
	"strconv"
)

// handleSubjects handles GET /api/students.
func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_students"
	subjects, err := s.deps.Subjects(r.Context())
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	stats, err := s.deps.Stats(r.Context())
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// parseLimit reads ?limit=N. Absent means the default.
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultEventLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
