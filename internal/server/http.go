package server

import (
	"encoding/json"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health and
// GET /metrics) must include a valid Authorization: Bearer <token> header.
func (s *GeotifyServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/geotifications", s.handleAddGeotification)
	mux.HandleFunc("GET /v1/geotifications", s.handleListGeotifications)
	mux.HandleFunc("GET /v1/geotifications/{id}", s.handleGetGeotification)
	mux.HandleFunc("DELETE /v1/geotifications/{id}", s.handleRemoveGeotification)
	mux.HandleFunc("GET /v1/count", s.handleCount)
	mux.HandleFunc("GET /v1/authorization", s.handleGetAuthorization)
	mux.HandleFunc("POST /v1/authorization", s.handleAuthorizationChanged)
	mux.HandleFunc("POST /v1/authorization/request", s.handleRequestAuthorization)
	mux.HandleFunc("POST /v1/monitoring/failures", s.handleMonitoringFailed)
	mux.HandleFunc("GET /v1/regions", s.handleListRegions)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *GeotifyServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.coord.Count(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
