package api

import "net/http"

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.stats != nil {
		for k, v := range s.stats.GetStats() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}
