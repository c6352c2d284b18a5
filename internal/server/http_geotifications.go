package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/model"
)

// addGeotificationInput is the body of POST /v1/geotifications.
type addGeotificationInput struct {
	Identifier string            `json:"identifier"`
	Coordinate *model.Coordinate `json:"coordinate"`
	Radius     float64           `json:"radius"`
	Note       string            `json:"note"`
	EventType  model.EventType   `json:"event_type"`
}

func (in addGeotificationInput) toRequest() (coordinator.AddRequest, error) {
	if in.Coordinate == nil {
		return coordinator.AddRequest{}, inputError("coordinate is required")
	}
	if in.EventType == "" {
		return coordinator.AddRequest{}, inputError("event_type is required")
	}
	return coordinator.AddRequest{
		Identifier: in.Identifier,
		Coordinate: *in.Coordinate,
		Radius:     in.Radius,
		Note:       in.Note,
		EventType:  in.EventType,
	}, nil
}

// handleAddGeotification handles POST /v1/geotifications.
func (s *GeotifyServer) handleAddGeotification(w http.ResponseWriter, r *http.Request) {
	var in addGeotificationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req, err := in.toRequest()
	if err != nil {
		writeErr(w, err)
		return
	}

	g, err := s.coord.Add(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// handleListGeotifications handles GET /v1/geotifications.
func (s *GeotifyServer) handleListGeotifications(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.Snapshot(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGetGeotification handles GET /v1/geotifications/{id}.
func (s *GeotifyServer) handleGetGeotification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	g, ok, err := s.coord.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "geotification not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleRemoveGeotification handles DELETE /v1/geotifications/{id}. Removing
// an absent identifier succeeds.
func (s *GeotifyServer) handleRemoveGeotification(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCount handles GET /v1/count.
func (s *GeotifyServer) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.coord.Count(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    n,
		"capacity": s.coord.Capacity(),
		"can_add":  n < s.coord.Capacity(),
	})
}
