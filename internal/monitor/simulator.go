package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alfredjeanlab/geotify/internal/model"
)

const (
	// DefaultMaxRegions is the platform cap on concurrently monitored regions.
	DefaultMaxRegions = 20
	// DefaultMaxRadius is the largest monitorable radius in meters.
	DefaultMaxRadius = 10000.0
)

var (
	ErrUnavailable    = errors.New("region monitoring is unavailable")
	ErrRegionLimit    = errors.New("monitored region limit reached")
	ErrRadiusTooLarge = errors.New("region radius exceeds platform maximum")
	ErrUnknownRegion  = errors.New("no monitored region with that identifier")
)

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	MaxRegions    int     // default DefaultMaxRegions
	MaxRadius     float64 // default DefaultMaxRadius
	Unavailable   bool    // report monitoring as unsupported
	Authorization model.AuthorizationLevel

	// GrantOnRequest is the level reported after RequestAlwaysAuthorization.
	// Empty means the request goes unanswered.
	GrantOnRequest model.AuthorizationLevel
}

// Simulator is an in-process Gateway. Callbacks are delivered synchronously
// on the calling goroutine, after the simulator's lock is released.
type Simulator struct {
	cfg SimulatorConfig

	mu       sync.Mutex
	auth     model.AuthorizationLevel
	regions  map[string]model.Region
	order    []string
	delegate Delegate
	requests int
}

// Compile-time check that Simulator implements Gateway.
var _ Gateway = (*Simulator)(nil)

// NewSimulator returns a Simulator with defaults applied to cfg.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.MaxRegions <= 0 {
		cfg.MaxRegions = DefaultMaxRegions
	}
	if cfg.MaxRadius <= 0 {
		cfg.MaxRadius = DefaultMaxRadius
	}
	if !cfg.Authorization.IsValid() {
		cfg.Authorization = model.AuthorizationNotDetermined
	}
	return &Simulator{
		cfg:     cfg,
		auth:    cfg.Authorization,
		regions: make(map[string]model.Region),
	}
}

// IsMonitoringAvailable reports false when configured Unavailable.
func (s *Simulator) IsMonitoringAvailable() bool { return !s.cfg.Unavailable }

// MaximumRadius returns the radius cap in meters.
func (s *Simulator) MaximumRadius() float64 { return s.cfg.MaxRadius }

// CurrentAuthorization returns the simulated authorization level.
func (s *Simulator) CurrentAuthorization() model.AuthorizationLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

func (s *Simulator) SetDelegate(d Delegate) {
	s.mu.Lock()
	s.delegate = d
	s.mu.Unlock()
}

func (s *Simulator) RequestAlwaysAuthorization() {
	s.mu.Lock()
	s.requests++
	grant := s.cfg.GrantOnRequest
	s.mu.Unlock()

	if grant != "" {
		s.SetAuthorization(grant)
	}
}

// AuthorizationRequests returns how many times authorization was requested.
func (s *Simulator) AuthorizationRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// SetAuthorization changes the authorization level and notifies the
// delegate, as the platform does when the user changes permissions.
func (s *Simulator) SetAuthorization(level model.AuthorizationLevel) {
	s.mu.Lock()
	s.auth = level
	d := s.delegate
	s.mu.Unlock()

	if d != nil {
		d.AuthorizationChanged(level)
	}
}

func (s *Simulator) StartMonitoring(_ context.Context, region model.Region) error {
	if s.cfg.Unavailable {
		return ErrUnavailable
	}

	s.mu.Lock()
	var failure error
	_, exists := s.regions[region.Identifier]
	switch {
	case region.Radius > s.cfg.MaxRadius:
		failure = fmt.Errorf("%w: %g > %g", ErrRadiusTooLarge, region.Radius, s.cfg.MaxRadius)
	case !exists && len(s.regions) >= s.cfg.MaxRegions:
		failure = fmt.Errorf("%w (%d)", ErrRegionLimit, s.cfg.MaxRegions)
	default:
		if !exists {
			s.order = append(s.order, region.Identifier)
		}
		s.regions[region.Identifier] = region
	}
	d := s.delegate
	s.mu.Unlock()

	if failure != nil && d != nil {
		d.MonitoringFailed(region.Identifier, failure)
	}
	return nil
}

func (s *Simulator) StopMonitoring(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(identifier)
	return nil
}

func (s *Simulator) MonitoredRegions() []model.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Region, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.regions[id])
	}
	return out
}

// Fail drops the subscription for identifier and reports err to the
// delegate, as the platform does when monitoring a region breaks.
func (s *Simulator) Fail(identifier string, err error) error {
	s.mu.Lock()
	_, ok := s.regions[identifier]
	if ok {
		s.removeLocked(identifier)
	}
	d := s.delegate
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, identifier)
	}
	if d != nil {
		d.MonitoringFailed(identifier, err)
	}
	return nil
}

func (s *Simulator) removeLocked(identifier string) {
	if _, ok := s.regions[identifier]; !ok {
		return
	}
	delete(s.regions, identifier)
	for i, id := range s.order {
		if id == identifier {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
