package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alfredjeanlab/geotify/internal/model"
)

// recordingDelegate captures callbacks.
type recordingDelegate struct {
	mu       sync.Mutex
	levels   []model.AuthorizationLevel
	failures map[string]error
}

func newRecordingDelegate() *recordingDelegate {
	return &recordingDelegate{failures: make(map[string]error)}
}

func (d *recordingDelegate) AuthorizationChanged(level model.AuthorizationLevel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels = append(d.levels, level)
}

func (d *recordingDelegate) MonitoringFailed(identifier string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[identifier] = err
}

func region(id string, radius float64) model.Region {
	return model.Region{Identifier: id, Radius: radius, NotifyOnEntry: true}
}

func TestSimulator_Defaults(t *testing.T) {
	s := NewSimulator(SimulatorConfig{})
	if s.MaximumRadius() != DefaultMaxRadius {
		t.Errorf("MaximumRadius() = %g, want %g", s.MaximumRadius(), DefaultMaxRadius)
	}
	if !s.IsMonitoringAvailable() {
		t.Error("IsMonitoringAvailable() = false, want true")
	}
	if got := s.CurrentAuthorization(); got != model.AuthorizationNotDetermined {
		t.Errorf("CurrentAuthorization() = %s, want not_determined", got)
	}
}

func TestSimulator_StartReplacesSameIdentifier(t *testing.T) {
	s := NewSimulator(SimulatorConfig{})
	ctx := context.Background()
	_ = s.StartMonitoring(ctx, region("a", 100))
	_ = s.StartMonitoring(ctx, region("a", 200))

	regions := s.MonitoredRegions()
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].Radius != 200 {
		t.Errorf("radius = %g, want 200", regions[0].Radius)
	}
}

func TestSimulator_StopIsIdempotent(t *testing.T) {
	s := NewSimulator(SimulatorConfig{})
	ctx := context.Background()
	_ = s.StartMonitoring(ctx, region("a", 100))
	_ = s.StartMonitoring(ctx, region("b", 100))

	for i := 0; i < 2; i++ {
		if err := s.StopMonitoring(ctx, "a"); err != nil {
			t.Fatalf("StopMonitoring: %v", err)
		}
	}
	regions := s.MonitoredRegions()
	if len(regions) != 1 || regions[0].Identifier != "b" {
		t.Errorf("regions = %+v, want only b", regions)
	}
}

func TestSimulator_RegionLimitReportsFailure(t *testing.T) {
	s := NewSimulator(SimulatorConfig{MaxRegions: 2})
	d := newRecordingDelegate()
	s.SetDelegate(d)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.StartMonitoring(ctx, region(id, 10)); err != nil {
			t.Fatalf("StartMonitoring(%s): %v", id, err)
		}
	}
	if n := len(s.MonitoredRegions()); n != 2 {
		t.Errorf("got %d regions, want 2", n)
	}
	if !errors.Is(d.failures["c"], ErrRegionLimit) {
		t.Errorf("failure for c = %v, want ErrRegionLimit", d.failures["c"])
	}
}

func TestSimulator_RadiusTooLargeReportsFailure(t *testing.T) {
	s := NewSimulator(SimulatorConfig{MaxRadius: 50})
	d := newRecordingDelegate()
	s.SetDelegate(d)

	_ = s.StartMonitoring(context.Background(), region("big", 51))
	if len(s.MonitoredRegions()) != 0 {
		t.Error("oversized region should not be monitored")
	}
	if !errors.Is(d.failures["big"], ErrRadiusTooLarge) {
		t.Errorf("failure = %v, want ErrRadiusTooLarge", d.failures["big"])
	}
}

func TestSimulator_Unavailable(t *testing.T) {
	s := NewSimulator(SimulatorConfig{Unavailable: true})
	if s.IsMonitoringAvailable() {
		t.Error("IsMonitoringAvailable() = true, want false")
	}
	if err := s.StartMonitoring(context.Background(), region("a", 1)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("StartMonitoring error = %v, want ErrUnavailable", err)
	}
}

func TestSimulator_RequestAlwaysAuthorization(t *testing.T) {
	s := NewSimulator(SimulatorConfig{GrantOnRequest: model.AuthorizationAlways})
	d := newRecordingDelegate()
	s.SetDelegate(d)

	s.RequestAlwaysAuthorization()

	if got := s.CurrentAuthorization(); got != model.AuthorizationAlways {
		t.Errorf("CurrentAuthorization() = %s, want authorized_always", got)
	}
	if len(d.levels) != 1 || d.levels[0] != model.AuthorizationAlways {
		t.Errorf("delegate levels = %v, want [authorized_always]", d.levels)
	}
	if s.AuthorizationRequests() != 1 {
		t.Errorf("AuthorizationRequests() = %d, want 1", s.AuthorizationRequests())
	}
}

func TestSimulator_RequestUnanswered(t *testing.T) {
	s := NewSimulator(SimulatorConfig{Authorization: model.AuthorizationDenied})
	d := newRecordingDelegate()
	s.SetDelegate(d)

	s.RequestAlwaysAuthorization()

	if got := s.CurrentAuthorization(); got != model.AuthorizationDenied {
		t.Errorf("CurrentAuthorization() = %s, want denied", got)
	}
	if len(d.levels) != 0 {
		t.Errorf("delegate levels = %v, want none", d.levels)
	}
}

func TestSimulator_Fail(t *testing.T) {
	s := NewSimulator(SimulatorConfig{})
	d := newRecordingDelegate()
	s.SetDelegate(d)
	_ = s.StartMonitoring(context.Background(), region("a", 10))

	boom := errors.New("location services reset")
	if err := s.Fail("a", boom); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if len(s.MonitoredRegions()) != 0 {
		t.Error("failed region should be dropped")
	}
	if !errors.Is(d.failures["a"], boom) {
		t.Errorf("failure = %v, want %v", d.failures["a"], boom)
	}

	if err := s.Fail("missing", boom); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("Fail(missing) = %v, want ErrUnknownRegion", err)
	}
}
