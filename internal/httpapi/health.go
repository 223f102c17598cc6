package httpapi

import "net/http"

// HandleLiveness is a lightweight liveness probe: confirms the process is
// alive and serving, always 200 (grounded on the teacher's
// internal/api.HandleHealthLive).
func (s *Server) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadiness reports readiness. The bridge has no external dependency
// to probe (no database, no queue — spec.md §1 Non-goals exclude any
// persistence layer beyond in-memory history/debug stores), so readiness
// always tracks liveness once the router is serving.
func (s *Server) HandleReadiness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
