package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned by Add when the live set is full.
	ErrCapacityExceeded = errors.New("geotification capacity exceeded")

	// ErrDuplicateIdentifier is returned by Add when the identifier is taken.
	ErrDuplicateIdentifier = errors.New("geotification identifier already in use")

	// ErrMonitoringUnsupported means the platform cannot monitor regions.
	// The geotification is kept and never retried.
	ErrMonitoringUnsupported = errors.New("region monitoring is not supported")

	// ErrMonitoringDeferred means authorization is below always. The
	// geotification is kept and subscribed once authorization is upgraded.
	ErrMonitoringDeferred = errors.New("region monitoring deferred until always authorization is granted")

	// ErrInvalidAuthorization rejects an authorization level outside the
	// known set.
	ErrInvalidAuthorization = errors.New("invalid authorization level")

	// ErrStopped is returned by every call made after Stop.
	ErrStopped = errors.New("coordinator stopped")
)

// MonitoringFailure reports that the platform could not monitor, or stopped
// monitoring, the region for Identifier.
type MonitoringFailure struct {
	Identifier string
	Err        error
}

func (e *MonitoringFailure) Error() string {
	return fmt.Sprintf("monitoring failed for region %s: %v", e.Identifier, e.Err)
}

func (e *MonitoringFailure) Unwrap() error { return e.Err }
