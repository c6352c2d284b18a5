// Package events carries geotify notifications over NATS subjects: observer
// and monitoring-report events going out, platform callbacks coming in.
package events

import (
	"context"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/model"
)

// Event topic constants
const (
	TopicGeotificationAdded   = "geotify.geotification.added"
	TopicGeotificationRemoved = "geotify.geotification.removed"

	TopicMonitoringUnsupported = "geotify.monitoring.unsupported"
	TopicMonitoringDeferred    = "geotify.monitoring.deferred"
	TopicMonitoringFailed      = "geotify.monitoring.failed"

	// Platform callbacks (published by the device bridge, consumed by serve).
	TopicPlatformAuthorization    = "geotify.platform.authorization"
	TopicPlatformMonitoringFailed = "geotify.platform.monitoring_failed"

	// Wildcard patterns.
	TopicAll            = "geotify.>"
	TopicGeotifications = "geotify.geotification.*"
	TopicMonitoring     = "geotify.monitoring.*"
	TopicPlatform       = "geotify.platform.*"
)

// Event types

type GeotificationAdded struct {
	Geotification model.Geotification `json:"geotification"`
}

type GeotificationRemoved struct {
	Geotification model.Geotification `json:"geotification"`
}

// MonitoringReport is a coordinator report flattened for the wire.
type MonitoringReport struct {
	Kind       coordinator.ReportKind `json:"kind"`
	Identifier string                 `json:"identifier"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Error      string                 `json:"error,omitempty"`
}

// NewMonitoringReport converts r for publishing.
func NewMonitoringReport(r coordinator.Report) MonitoringReport {
	out := MonitoringReport{
		Kind:       r.Kind,
		Identifier: r.Identifier,
		Title:      r.Title(),
		Message:    r.Message(),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// Platform callbacks

type AuthorizationChanged struct {
	Authorization model.AuthorizationLevel `json:"authorization"`
}

// MonitoringFailed reports a platform monitoring failure. An empty
// Identifier means the failure is not tied to a region.
type MonitoringFailed struct {
	Identifier string `json:"identifier,omitempty"`
	Error      string `json:"error"`
}

// TopicForReport returns the subject a report of kind is published on.
func TopicForReport(kind coordinator.ReportKind) string {
	switch kind {
	case coordinator.ReportMonitoringUnsupported:
		return TopicMonitoringUnsupported
	case coordinator.ReportMonitoringDeferred:
		return TopicMonitoringDeferred
	default:
		return TopicMonitoringFailed
	}
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
