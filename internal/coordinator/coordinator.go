// Package coordinator owns the live set of geotifications. It enforces the
// capacity and radius limits, keeps region monitoring subscriptions in step
// with the authorization level, persists the set wholesale to a store, and
// notifies observers of structural changes.
//
// Every operation runs on a single worker goroutine started by Start, so
// mutations never interleave.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/alfredjeanlab/geotify/internal/idgen"
	"github.com/alfredjeanlab/geotify/internal/metrics"
	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/monitor"
	"github.com/alfredjeanlab/geotify/internal/store"
)

// DefaultCapacity is the maximum number of geotifications in the live set.
const DefaultCapacity = 20

// AddRequest describes a geotification to create. An empty Identifier is
// replaced by a generated one.
type AddRequest struct {
	Identifier string
	Coordinate model.Coordinate
	Radius     float64
	Note       string
	EventType  model.EventType
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithObserver registers an observer of added and removed geotifications.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, o) }
}

// WithReporter registers a receiver of monitoring reports.
func WithReporter(r Reporter) Option {
	return func(c *Coordinator) { c.reporters = append(c.reporters, r) }
}

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithMetrics feeds coordinator state into m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// Coordinator is the geotification state machine.
type Coordinator struct {
	store     store.Store
	gateway   monitor.Gateway
	logger    *slog.Logger
	observers []Observer
	reporters []Reporter
	metrics   *metrics.Collector
	capacity  int
	newID     func(taken func(string) bool) (string, error)

	queue *queue

	// Owned by the worker.
	items       []model.Geotification
	auth        model.AuthorizationLevel
	unsupported map[string]struct{}
}

// New creates a Coordinator over s and gw and installs itself as the
// gateway's delegate. Call Start before using it.
func New(s store.Store, gw monitor.Gateway, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       s,
		gateway:     gw,
		logger:      slog.Default(),
		capacity:    DefaultCapacity,
		newID:       idgen.Generate,
		queue:       newQueue(),
		auth:        gw.CurrentAuthorization(),
		unsupported: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	gw.SetDelegate(c)
	return c
}

// Start launches the worker goroutine.
func (c *Coordinator) Start() {
	c.queue.start()
}

// Stop shuts the worker down. Pending and later calls return ErrStopped.
func (c *Coordinator) Stop() {
	c.queue.stop()
}

// Capacity returns the maximum size of the live set.
func (c *Coordinator) Capacity() int {
	return c.capacity
}

// LoadAll replaces the live set with the store's contents. It does not touch
// monitoring subscriptions.
func (c *Coordinator) LoadAll(ctx context.Context) error {
	_, err := call(ctx, c.queue, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.loadAll(ctx)
	})
	return err
}

// Add creates a geotification, persists the live set and starts monitoring
// it. Monitoring problems are reported, not returned.
func (c *Coordinator) Add(ctx context.Context, req AddRequest) (model.Geotification, error) {
	return call(ctx, c.queue, func(ctx context.Context) (model.Geotification, error) {
		return c.add(ctx, req)
	})
}

// Remove deletes the geotification with identifier. Removing an absent
// identifier is a no-op.
func (c *Coordinator) Remove(ctx context.Context, identifier string) error {
	_, err := call(ctx, c.queue, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.remove(ctx, identifier)
	})
	return err
}

// PersistAll overwrites the store with the live set.
func (c *Coordinator) PersistAll(ctx context.Context) error {
	_, err := call(ctx, c.queue, func(ctx context.Context) (struct{}, error) {
		err := c.persist(ctx)
		c.metrics.RecordOperation("persist", err)
		return struct{}{}, err
	})
	return err
}

// ReconcileAuthorization records level and, when it allows region
// monitoring, subscribes every geotification that lacks a subscription.
func (c *Coordinator) ReconcileAuthorization(ctx context.Context, level model.AuthorizationLevel) error {
	_, err := call(ctx, c.queue, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.reconcile(ctx, level)
	})
	return err
}

// CheckAuthorization reconciles the live set against the gateway's current
// authorization level and asks for always authorization when it is missing.
// Call it after LoadAll so restored geotifications get subscribed.
func (c *Coordinator) CheckAuthorization(ctx context.Context) error {
	_, err := call(ctx, c.queue, func(ctx context.Context) (struct{}, error) {
		if err := c.reconcile(ctx, c.gateway.CurrentAuthorization()); err != nil {
			return struct{}{}, err
		}
		if !c.auth.AllowsRegionMonitoring() {
			c.logger.Info("requesting always authorization", "authorization", c.auth)
			c.gateway.RequestAlwaysAuthorization()
		}
		return struct{}{}, nil
	})
	return err
}

// AuthorizationChanged implements monitor.Delegate. It queues a
// reconciliation and returns immediately.
func (c *Coordinator) AuthorizationChanged(level model.AuthorizationLevel) {
	ok := c.queue.push(func() {
		if err := c.reconcile(context.Background(), level); err != nil {
			c.logger.Warn("authorization reconcile failed", "authorization", level, "err", err)
		}
	})
	if !ok {
		c.logger.Debug("authorization change dropped after stop", "authorization", level)
	}
}

// MonitoringFailed implements monitor.Delegate. The failure is logged and
// reported; the geotification stays in the live set.
func (c *Coordinator) MonitoringFailed(identifier string, err error) {
	ok := c.queue.push(func() {
		c.report(Report{
			Kind:       ReportMonitoringFailed,
			Identifier: identifier,
			Err:        &MonitoringFailure{Identifier: identifier, Err: err},
		})
		c.updateGauges()
	})
	if !ok {
		c.logger.Debug("monitoring failure dropped after stop", "identifier", identifier, "err", err)
	}
}

// Snapshot is a consistent view of the coordinator state.
type Snapshot struct {
	Items         []Entry                  `json:"geotifications"`
	Authorization model.AuthorizationLevel `json:"authorization"`
	Capacity      int                      `json:"capacity"`
}

// Entry is a geotification with its monitoring state.
type Entry struct {
	model.Geotification
	Monitored   bool `json:"monitored"`
	Unsupported bool `json:"unsupported,omitempty"`
}

// Snapshot returns the live set in display order with monitoring state.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	return call(ctx, c.queue, func(context.Context) (Snapshot, error) {
		active := c.activeRegions()
		snap := Snapshot{
			Items:         make([]Entry, 0, len(c.items)),
			Authorization: c.auth,
			Capacity:      c.capacity,
		}
		for _, g := range c.items {
			_, unsupported := c.unsupported[g.Identifier]
			_, monitored := active[g.Identifier]
			snap.Items = append(snap.Items, Entry{Geotification: g, Monitored: monitored, Unsupported: unsupported})
		}
		return snap, nil
	})
}

// List returns the live set in display order.
func (c *Coordinator) List(ctx context.Context) ([]model.Geotification, error) {
	return call(ctx, c.queue, func(context.Context) ([]model.Geotification, error) {
		return slices.Clone(c.items), nil
	})
}

// Get returns the geotification with identifier, or false when absent.
func (c *Coordinator) Get(ctx context.Context, identifier string) (model.Geotification, bool, error) {
	type result struct {
		g  model.Geotification
		ok bool
	}
	r, err := call(ctx, c.queue, func(context.Context) (result, error) {
		if i := c.indexOf(identifier); i >= 0 {
			return result{g: c.items[i], ok: true}, nil
		}
		return result{}, nil
	})
	return r.g, r.ok, err
}

// Count returns the size of the live set.
func (c *Coordinator) Count(ctx context.Context) (int, error) {
	return call(ctx, c.queue, func(context.Context) (int, error) {
		return len(c.items), nil
	})
}

// CanAdd reports whether the live set is below capacity.
func (c *Coordinator) CanAdd(ctx context.Context) (bool, error) {
	return call(ctx, c.queue, func(context.Context) (bool, error) {
		return len(c.items) < c.capacity, nil
	})
}

// Authorization returns the last recorded authorization level.
func (c *Coordinator) Authorization(ctx context.Context) (model.AuthorizationLevel, error) {
	return call(ctx, c.queue, func(context.Context) (model.AuthorizationLevel, error) {
		return c.auth, nil
	})
}

func (c *Coordinator) loadAll(ctx context.Context) error {
	stored, err := c.store.LoadAll(ctx)
	c.metrics.RecordOperation("load", err)
	if err != nil {
		return fmt.Errorf("loading geotifications: %w", err)
	}

	previous := c.items
	c.items = make([]model.Geotification, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, g := range stored {
		if _, dup := seen[g.Identifier]; dup {
			c.logger.Warn("dropping duplicate stored geotification", "identifier", g.Identifier)
			continue
		}
		seen[g.Identifier] = struct{}{}
		c.items = append(c.items, g)
	}
	if len(c.items) > c.capacity {
		c.logger.Warn("stored geotifications exceed capacity", "count", len(c.items), "capacity", c.capacity)
	}

	for _, g := range previous {
		c.notifyRemoved(g)
	}
	for _, g := range c.items {
		c.notifyAdded(g)
	}
	c.updateGauges()
	c.logger.Info("geotifications loaded", "count", len(c.items))
	return nil
}

func (c *Coordinator) add(ctx context.Context, req AddRequest) (g model.Geotification, err error) {
	defer func() { c.metrics.RecordOperation("add", err) }()

	if len(c.items) >= c.capacity {
		return model.Geotification{}, fmt.Errorf("%w: limit is %d", ErrCapacityExceeded, c.capacity)
	}

	g = model.Geotification{
		Identifier: req.Identifier,
		Coordinate: req.Coordinate,
		Radius:     req.Radius,
		Note:       req.Note,
		EventType:  req.EventType,
	}
	if g.Identifier == "" {
		id, err := c.newID(func(id string) bool { return c.indexOf(id) >= 0 })
		if err != nil {
			return model.Geotification{}, fmt.Errorf("generating identifier: %w", err)
		}
		g.Identifier = id
	}
	if c.indexOf(g.Identifier) >= 0 {
		return model.Geotification{}, fmt.Errorf("%w: %s", ErrDuplicateIdentifier, g.Identifier)
	}
	if limit := c.gateway.MaximumRadius(); limit > 0 && g.Radius > limit {
		c.logger.Debug("clamping radius", "identifier", g.Identifier, "radius", g.Radius, "max", limit)
		g.Radius = limit
	}
	if err := model.ValidateGeotification(&g); err != nil {
		return model.Geotification{}, err
	}

	c.items = append(c.items, g)
	if err := c.persist(ctx); err != nil {
		c.items = c.items[:len(c.items)-1]
		return model.Geotification{}, err
	}

	_ = c.startMonitoring(ctx, g)
	c.notifyAdded(g)
	c.updateGauges()
	c.logger.Info("geotification added", "identifier", g.Identifier, "event_type", g.EventType, "radius", g.Radius)
	return g, nil
}

func (c *Coordinator) remove(ctx context.Context, identifier string) (err error) {
	i := c.indexOf(identifier)
	if i < 0 {
		return nil
	}
	defer func() { c.metrics.RecordOperation("remove", err) }()

	previous := slices.Clone(c.items)
	g := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	if err := c.persist(ctx); err != nil {
		c.items = previous
		return err
	}

	c.stopMonitoring(ctx, identifier)
	delete(c.unsupported, identifier)
	c.notifyRemoved(g)
	c.updateGauges()
	c.logger.Info("geotification removed", "identifier", identifier)
	return nil
}

func (c *Coordinator) persist(ctx context.Context) error {
	if err := c.store.Save(ctx, slices.Clone(c.items)); err != nil {
		return fmt.Errorf("saving geotifications: %w", err)
	}
	return nil
}

func (c *Coordinator) indexOf(identifier string) int {
	return slices.IndexFunc(c.items, func(g model.Geotification) bool {
		return g.Identifier == identifier
	})
}

func (c *Coordinator) notifyAdded(g model.Geotification) {
	for _, o := range c.observers {
		o.GeotificationAdded(g)
	}
}

func (c *Coordinator) notifyRemoved(g model.Geotification) {
	for _, o := range c.observers {
		o.GeotificationRemoved(g)
	}
}

func (c *Coordinator) updateGauges() {
	if c.metrics == nil {
		return
	}
	c.metrics.SetCounts(len(c.items), len(c.gateway.MonitoredRegions()))
}
