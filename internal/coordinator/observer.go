package coordinator

import "github.com/alfredjeanlab/geotify/internal/model"

// Observer is notified of structural changes to the live set. Callbacks run
// on the coordinator's worker and must not call back into the Coordinator.
type Observer interface {
	GeotificationAdded(g model.Geotification)
	GeotificationRemoved(g model.Geotification)
}

// ReportKind classifies a non-fatal monitoring condition.
type ReportKind string

const (
	ReportMonitoringUnsupported ReportKind = "monitoring_unsupported"
	ReportMonitoringDeferred    ReportKind = "monitoring_deferred"
	ReportMonitoringFailed      ReportKind = "monitoring_failed"
)

// Report is a monitoring condition to surface to the user.
type Report struct {
	Kind       ReportKind
	Identifier string
	Err        error
}

// Title is the alert title for the report.
func (r Report) Title() string {
	if r.Kind == ReportMonitoringDeferred {
		return "Warning"
	}
	return "Error"
}

// Message is the user-facing alert text for the report.
func (r Report) Message() string {
	switch r.Kind {
	case ReportMonitoringUnsupported:
		return "Geofencing is not supported on this device!"
	case ReportMonitoringDeferred:
		return "Your geotification is saved but will only be activated once you grant Geotify permission to access the device location."
	case ReportMonitoringFailed:
		return "Monitoring failed for region with identifier: " + r.Identifier
	}
	return string(r.Kind)
}

// Reporter receives monitoring reports. Like Observer, it runs on the
// coordinator's worker.
type Reporter interface {
	Report(r Report)
}
