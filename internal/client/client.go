// Package client provides a transport-agnostic interface for the geotify
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/model"
)

// GeotifyClient is the interface the geotify CLI commands use to talk to a
// running coordinator. It is implemented by HTTPClient.
type GeotifyClient interface {
	// Geotifications
	AddGeotification(ctx context.Context, req *AddGeotificationRequest) (*model.Geotification, error)
	GetGeotification(ctx context.Context, identifier string) (*model.Geotification, error)
	ListGeotifications(ctx context.Context) (*coordinator.Snapshot, error)
	RemoveGeotification(ctx context.Context, identifier string) error
	Count(ctx context.Context) (*CountResponse, error)

	// Platform
	Authorization(ctx context.Context) (model.AuthorizationLevel, error)
	SetAuthorization(ctx context.Context, level model.AuthorizationLevel) error
	RequestAuthorization(ctx context.Context) (model.AuthorizationLevel, error)
	ReportMonitoringFailure(ctx context.Context, identifier, message string) error
	Regions(ctx context.Context) (*RegionsResponse, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// AddGeotificationRequest holds parameters for adding a geotification.
// An empty Identifier asks the server to generate one.
type AddGeotificationRequest struct {
	Identifier string           `json:"identifier,omitempty"`
	Coordinate model.Coordinate `json:"coordinate"`
	Radius     float64          `json:"radius"`
	Note       string           `json:"note"`
	EventType  model.EventType  `json:"event_type"`
}

// CountResponse is the response from Count.
type CountResponse struct {
	Count    int  `json:"count"`
	Capacity int  `json:"capacity"`
	CanAdd   bool `json:"can_add"`
}

// RegionsResponse is the response from Regions.
type RegionsResponse struct {
	Regions   []model.Region `json:"regions"`
	Available bool           `json:"available"`
	MaxRadius float64        `json:"max_radius"`
}
