// Package server exposes the coordinator over HTTP and a gRPC health service.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/metrics"
	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/monitor"
)

// PlatformControl is implemented by gateways whose platform state can be
// driven from outside, such as monitor.Simulator. Callback endpoints go
// through it when available so the gateway's own state stays in step.
type PlatformControl interface {
	SetAuthorization(level model.AuthorizationLevel)
	Fail(identifier string, err error) error
}

// GeotifyServer serves the geotify HTTP API.
type GeotifyServer struct {
	coord   *coordinator.Coordinator
	gateway monitor.Gateway
	hub     *EventHub
	metrics *metrics.Collector
	logger  *slog.Logger
}

// Option configures a GeotifyServer.
type Option func(*GeotifyServer)

// WithEventHub streams hub's events on GET /v1/events/stream.
func WithEventHub(hub *EventHub) Option {
	return func(s *GeotifyServer) { s.hub = hub }
}

// WithMetrics serves m on GET /metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *GeotifyServer) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *GeotifyServer) { s.logger = logger }
}

// NewGeotifyServer returns a server for coord. gw must be the gateway the
// coordinator was built with.
func NewGeotifyServer(coord *coordinator.Coordinator, gw monitor.Gateway, opts ...Option) *GeotifyServer {
	s := &GeotifyServer{
		coord:   coord,
		gateway: gw,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewEventHub(s.logger)
	}
	return s
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// statusFor maps coordinator and input errors to HTTP status codes.
func statusFor(err error) int {
	var (
		ie inputError
		ve *model.ValidationError
	)
	switch {
	case errors.As(err, &ie), errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, coordinator.ErrCapacityExceeded), errors.Is(err, coordinator.ErrDuplicateIdentifier):
		return http.StatusConflict
	case errors.Is(err, coordinator.ErrInvalidAuthorization):
		return http.StatusBadRequest
	case errors.Is(err, monitor.ErrUnknownRegion):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeErr writes err with the status from statusFor. Validation errors
// carry their field list.
func writeErr(w http.ResponseWriter, err error) {
	code := statusFor(err)
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, code, map[string]any{"error": ve.Error(), "fields": ve.Errors})
		return
	}
	writeError(w, code, err.Error())
}
