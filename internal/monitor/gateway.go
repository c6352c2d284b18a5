// Package monitor defines the region monitoring gateway consumed by the
// coordinator, and an in-process simulator of the platform service.
package monitor

import (
	"context"

	"github.com/alfredjeanlab/geotify/internal/model"
)

// Gateway is the platform region monitoring service. It holds its own
// subscription table keyed by region identifier.
type Gateway interface {
	// IsMonitoringAvailable reports whether circular region monitoring is
	// supported at all.
	IsMonitoringAvailable() bool

	// MaximumRadius is the largest radius, in meters, the platform will monitor.
	MaximumRadius() float64

	CurrentAuthorization() model.AuthorizationLevel

	// RequestAlwaysAuthorization asks the user for always authorization.
	// The outcome arrives later through Delegate.AuthorizationChanged.
	RequestAlwaysAuthorization()

	// StartMonitoring registers region. A region with the same identifier
	// replaces the existing subscription. Failures detected after the call
	// returns are delivered through Delegate.MonitoringFailed.
	StartMonitoring(ctx context.Context, region model.Region) error

	// StopMonitoring cancels the subscription for identifier, if any.
	StopMonitoring(ctx context.Context, identifier string) error

	// MonitoredRegions returns the active subscriptions.
	MonitoredRegions() []model.Region

	// SetDelegate installs the receiver of platform callbacks.
	SetDelegate(d Delegate)
}

// Delegate receives asynchronous platform callbacks. Implementations must
// not block: callbacks may be issued from any goroutine.
type Delegate interface {
	AuthorizationChanged(level model.AuthorizationLevel)
	MonitoringFailed(identifier string, err error)
}
