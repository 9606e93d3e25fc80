package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/domain/model"
)

// eventRequest is the body of POST /api/events. eventId is optional and
// makes the submission idempotent.
type eventRequest struct {
	EventID     string `json:"eventId"`
	SubjectID   string `json:"studentId"`
	Kind        string `json:"event"`
	Description string `json:"description"`
	Score       int    `json:"score"`
	Priority    string `json:"priority"`
	Source      string `json:"source"`
}

func (e eventRequest) event() model.Event {
	return model.Event{
		ID:          strings.TrimSpace(e.EventID),
		SubjectID:   strings.TrimSpace(e.SubjectID),
		Kind:        strings.TrimSpace(e.Kind),
		Description: strings.TrimSpace(e.Description),
		Score:       e.Score,
		Priority:    model.Priority(e.Priority),
		Source:      model.Source(e.Source),
	}
}

// handleListEvents handles GET /api/events?studentId=&limit=.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	events, err := s.deps.Events(r.Context(), r.URL.Query().Get("studentId"), limit)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handlePostEvent handles POST /api/events.
func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	stored, err := s.deps.SubmitEvent(r.Context(), req.event())
	if errors.Is(err, service.ErrDuplicateEvent) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// handleDeleteEvent handles DELETE /api/god/events/{id}.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_event"
	if err := s.deps.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAllEvents handles DELETE /api/god/events.
func (s *Server) handleDeleteAllEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_events"
	n, err := s.deps.DeleteAllEvents(r.Context())
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
