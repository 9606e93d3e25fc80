package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleDeactivate handles DELETE /api/god/students/{id}.
func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	const op = "api.deactivate_student"
	if err := s.deps.DeactivateSubject(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReset handles POST /api/god/students/{id}/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_student"
	subj, err := s.deps.ResetSubject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, subj)
}
