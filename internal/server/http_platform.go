package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/geotify/internal/events"
	"github.com/alfredjeanlab/geotify/internal/model"
)

// handleGetAuthorization handles GET /v1/authorization.
func (s *GeotifyServer) handleGetAuthorization(w http.ResponseWriter, r *http.Request) {
	level, err := s.coord.Authorization(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events.AuthorizationChanged{Authorization: level})
}

// handleAuthorizationChanged handles POST /v1/authorization, the platform's
// authorization callback. Reconciliation happens asynchronously.
func (s *GeotifyServer) handleAuthorizationChanged(w http.ResponseWriter, r *http.Request) {
	var in events.AuthorizationChanged
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !in.Authorization.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown authorization level")
		return
	}

	if pc, ok := s.gateway.(PlatformControl); ok {
		pc.SetAuthorization(in.Authorization)
	} else {
		s.coord.AuthorizationChanged(in.Authorization)
	}
	writeJSON(w, http.StatusAccepted, in)
}

// handleRequestAuthorization handles POST /v1/authorization/request.
func (s *GeotifyServer) handleRequestAuthorization(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.CheckAuthorization(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	level, err := s.coord.Authorization(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, events.AuthorizationChanged{Authorization: level})
}

// handleMonitoringFailed handles POST /v1/monitoring/failures, the platform's
// monitoring failure callback.
func (s *GeotifyServer) handleMonitoringFailed(w http.ResponseWriter, r *http.Request) {
	var in events.MonitoringFailed
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Identifier == "" {
		writeErr(w, inputError("identifier is required"))
		return
	}
	if in.Error == "" {
		in.Error = "monitoring failed"
	}

	cause := errors.New(in.Error)
	if pc, ok := s.gateway.(PlatformControl); ok {
		if err := pc.Fail(in.Identifier, cause); err != nil {
			writeErr(w, err)
			return
		}
	} else {
		s.coord.MonitoringFailed(in.Identifier, cause)
	}
	writeJSON(w, http.StatusAccepted, in)
}

// handleListRegions handles GET /v1/regions.
func (s *GeotifyServer) handleListRegions(w http.ResponseWriter, _ *http.Request) {
	regions := s.gateway.MonitoredRegions()
	if regions == nil {
		regions = []model.Region{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"regions":    regions,
		"available":  s.gateway.IsMonitoringAvailable(),
		"max_radius": s.gateway.MaximumRadius(),
	})
}
