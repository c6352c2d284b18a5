package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alfredjeanlab/geotify/internal/metrics"
	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/monitor"
	"github.com/alfredjeanlab/geotify/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder captures observer and reporter callbacks.
type recorder struct {
	mu      sync.Mutex
	added   []string
	removed []string
	reports []Report
}

func (r *recorder) GeotificationAdded(g model.Geotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, g.Identifier)
}

func (r *recorder) GeotificationRemoved(g model.Geotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, g.Identifier)
}

func (r *recorder) Report(rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recorder) reportsOf(kind ReportKind) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Report
	for _, rep := range r.reports {
		if rep.Kind == kind {
			out = append(out, rep)
		}
	}
	return out
}

type fixture struct {
	c   *Coordinator
	sim *monitor.Simulator
	st  *memory.MemoryStore
	rec *recorder
}

func newFixture(t *testing.T, cfg monitor.SimulatorConfig, opts ...Option) *fixture {
	t.Helper()
	st := memory.New(testLogger())
	return newFixtureWithStore(t, st, cfg, opts...)
}

func newFixtureWithStore(t *testing.T, st *memory.MemoryStore, cfg monitor.SimulatorConfig, opts ...Option) *fixture {
	t.Helper()
	sim := monitor.NewSimulator(cfg)
	rec := &recorder{}
	all := append([]Option{WithLogger(testLogger()), WithObserver(rec), WithReporter(rec)}, opts...)
	c := New(st, sim, all...)
	c.Start()
	t.Cleanup(c.Stop)
	return &fixture{c: c, sim: sim, st: st, rec: rec}
}

// flush waits until every job queued so far, including delegate callbacks,
// has run.
func (f *fixture) flush(t *testing.T) {
	t.Helper()
	if _, err := f.c.Count(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func alwaysConfig() monitor.SimulatorConfig {
	return monitor.SimulatorConfig{Authorization: model.AuthorizationAlways}
}

func request(id string) AddRequest {
	return AddRequest{
		Identifier: id,
		Coordinate: model.Coordinate{Latitude: 37.33, Longitude: -122.03},
		Radius:     100,
		Note:       "note " + id,
		EventType:  model.EventOnEntry,
	}
}

func mustAdd(t *testing.T, c *Coordinator, req AddRequest) model.Geotification {
	t.Helper()
	g, err := c.Add(context.Background(), req)
	if err != nil {
		t.Fatalf("Add(%q): %v", req.Identifier, err)
	}
	return g
}

func TestAdd_CountTracksAddsAndRemoves(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	ctx := context.Background()

	for i := range 5 {
		mustAdd(t, f.c, request(fmt.Sprintf("g%d", i)))
	}
	for _, id := range []string{"g1", "g3"} {
		if err := f.c.Remove(ctx, id); err != nil {
			t.Fatalf("Remove(%s): %v", id, err)
		}
	}

	n, err := f.c.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	list, _ := f.c.List(ctx)
	var ids []string
	for _, g := range list {
		ids = append(ids, g.Identifier)
	}
	if got := strings.Join(ids, ","); got != "g0,g2,g4" {
		t.Errorf("List order = %s, want g0,g2,g4", got)
	}
}

func TestAdd_CapacityExceeded(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	ctx := context.Background()

	for i := range DefaultCapacity {
		mustAdd(t, f.c, request(fmt.Sprintf("g%d", i)))
	}
	canAdd, _ := f.c.CanAdd(ctx)
	if canAdd {
		t.Error("CanAdd = true at capacity")
	}
	saves := f.st.Saves()

	_, err := f.c.Add(ctx, request("overflow"))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if n, _ := f.c.Count(ctx); n != DefaultCapacity {
		t.Errorf("Count = %d, want %d", n, DefaultCapacity)
	}
	if f.st.Saves() != saves {
		t.Error("rejected add persisted the set")
	}
}

func TestAdd_WithCapacity(t *testing.T) {
	f := newFixture(t, alwaysConfig(), WithCapacity(2))
	mustAdd(t, f.c, request("a"))
	mustAdd(t, f.c, request("b"))
	if _, err := f.c.Add(context.Background(), request("c")); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if f.c.Capacity() != 2 {
		t.Errorf("Capacity = %d, want 2", f.c.Capacity())
	}
}

func TestAdd_ClampsRadius(t *testing.T) {
	cfg := alwaysConfig()
	cfg.MaxRadius = 500
	f := newFixture(t, cfg)

	tests := []struct {
		name   string
		radius float64
		want   float64
	}{
		{"above max", 1000, 500},
		{"at max", 500, 500},
		{"below max", 20, 20},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(fmt.Sprintf("r%d", i))
			req.Radius = tt.radius
			g := mustAdd(t, f.c, req)
			if g.Radius != tt.want {
				t.Errorf("Radius = %g, want %g", g.Radius, tt.want)
			}
		})
	}

	for _, r := range f.sim.MonitoredRegions() {
		if r.Radius > 500 {
			t.Errorf("region %s radius %g exceeds max", r.Identifier, r.Radius)
		}
	}
}

func TestAdd_DuplicateIdentifier(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	mustAdd(t, f.c, request("dup"))

	_, err := f.c.Add(context.Background(), request("dup"))
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("err = %v, want ErrDuplicateIdentifier", err)
	}
	if n, _ := f.c.Count(context.Background()); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestAdd_GeneratesIdentifier(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	g := mustAdd(t, f.c, request(""))
	if !strings.HasPrefix(g.Identifier, "geo-") {
		t.Errorf("Identifier = %q, want geo- prefix", g.Identifier)
	}
}

func TestAdd_IdentifierGeneratorError(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	f.c.newID = func(func(string) bool) (string, error) { return "", errors.New("entropy exhausted") }

	if _, err := f.c.Add(context.Background(), request("")); err == nil {
		t.Fatal("expected error")
	}
}

func TestAdd_ValidationError(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	req := request("bad")
	req.Coordinate.Latitude = 91
	req.EventType = "sometimes"

	_, err := f.c.Add(context.Background(), req)
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *model.ValidationError", err)
	}
	if n, _ := f.c.Count(context.Background()); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

// failingStore wraps a MemoryStore and fails Save on demand.
type failingStore struct {
	*memory.MemoryStore
	fail bool
}

func (s *failingStore) Save(ctx context.Context, items []model.Geotification) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, items)
}

func TestAdd_PersistFailureRevertsAppend(t *testing.T) {
	st := &failingStore{MemoryStore: memory.New(testLogger())}
	sim := monitor.NewSimulator(alwaysConfig())
	rec := &recorder{}
	c := New(st, sim, WithLogger(testLogger()), WithObserver(rec))
	c.Start()
	t.Cleanup(c.Stop)
	ctx := context.Background()

	mustAdd(t, c, request("kept"))
	st.fail = true

	if _, err := c.Add(ctx, request("lost")); err == nil {
		t.Fatal("expected persist error")
	}
	list, _ := c.List(ctx)
	if len(list) != 1 || list[0].Identifier != "kept" {
		t.Errorf("List = %+v, want only kept", list)
	}
	if len(sim.MonitoredRegions()) != 1 {
		t.Errorf("regions = %d, want 1", len(sim.MonitoredRegions()))
	}
	if len(rec.added) != 1 {
		t.Errorf("observer saw %d adds, want 1", len(rec.added))
	}

	if err := c.Remove(ctx, "kept"); err == nil {
		t.Fatal("expected persist error on remove")
	}
	if n, _ := c.Count(ctx); n != 1 {
		t.Errorf("Count after failed remove = %d, want 1", n)
	}
}

// savesAtNotify records the store's save count when each add is observed.
type savesAtNotify struct {
	st    *memory.MemoryStore
	saves []int
}

func (o *savesAtNotify) GeotificationAdded(model.Geotification) {
	o.saves = append(o.saves, o.st.Saves())
}
func (o *savesAtNotify) GeotificationRemoved(model.Geotification) {}

func TestAdd_ObserverNotifiedAfterPersist(t *testing.T) {
	st := memory.New(testLogger())
	obs := &savesAtNotify{st: st}
	f := newFixtureWithStore(t, st, alwaysConfig(), WithObserver(obs))

	mustAdd(t, f.c, request("a"))
	mustAdd(t, f.c, request("b"))
	if len(obs.saves) != 2 || obs.saves[0] != 1 || obs.saves[1] != 2 {
		t.Errorf("saves at notify = %v, want [1 2]", obs.saves)
	}
}

func TestAdd_MonitoringUnsupported(t *testing.T) {
	cfg := alwaysConfig()
	cfg.Unavailable = true
	f := newFixture(t, cfg)
	ctx := context.Background()

	mustAdd(t, f.c, request("u"))
	if got := len(f.rec.reportsOf(ReportMonitoringUnsupported)); got != 1 {
		t.Fatalf("unsupported reports = %d, want 1", got)
	}
	rep := f.rec.reportsOf(ReportMonitoringUnsupported)[0]
	if !errors.Is(rep.Err, ErrMonitoringUnsupported) || rep.Identifier != "u" {
		t.Errorf("report = %+v", rep)
	}

	// Never retried.
	if err := f.c.ReconcileAuthorization(ctx, model.AuthorizationAlways); err != nil {
		t.Fatal(err)
	}
	if got := len(f.rec.reportsOf(ReportMonitoringUnsupported)); got != 1 {
		t.Errorf("unsupported reports after reconcile = %d, want 1", got)
	}

	snap, _ := f.c.Snapshot(ctx)
	if len(snap.Items) != 1 || !snap.Items[0].Unsupported || snap.Items[0].Monitored {
		t.Errorf("snapshot = %+v", snap.Items)
	}
}

func TestScenario_DeferredUntilAlways(t *testing.T) {
	f := newFixture(t, monitor.SimulatorConfig{Authorization: model.AuthorizationDenied})
	ctx := context.Background()

	req := request("home")
	req.EventType = model.EventOnEntry
	mustAdd(t, f.c, req)

	deferred := f.rec.reportsOf(ReportMonitoringDeferred)
	if len(deferred) != 1 || !errors.Is(deferred[0].Err, ErrMonitoringDeferred) {
		t.Fatalf("deferred reports = %+v", deferred)
	}
	if n := len(f.sim.MonitoredRegions()); n != 0 {
		t.Fatalf("regions before upgrade = %d, want 0", n)
	}

	f.sim.SetAuthorization(model.AuthorizationAlways)
	f.flush(t)

	regions := f.sim.MonitoredRegions()
	if len(regions) != 1 {
		t.Fatalf("regions after upgrade = %d, want 1", len(regions))
	}
	r := regions[0]
	if r.Identifier != "home" || !r.NotifyOnEntry || r.NotifyOnExit {
		t.Errorf("region = %+v, want home entry=true exit=false", r)
	}
	if level, _ := f.c.Authorization(ctx); level != model.AuthorizationAlways {
		t.Errorf("Authorization = %s", level)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture(t, monitor.SimulatorConfig{Authorization: model.AuthorizationWhenInUse})
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		mustAdd(t, f.c, request(id))
	}

	for range 2 {
		if err := f.c.ReconcileAuthorization(ctx, model.AuthorizationAlways); err != nil {
			t.Fatal(err)
		}
	}

	counts := map[string]int{}
	for _, r := range f.sim.MonitoredRegions() {
		counts[r.Identifier]++
	}
	for _, id := range []string{"a", "b", "c"} {
		if counts[id] != 1 {
			t.Errorf("subscriptions for %s = %d, want 1", id, counts[id])
		}
	}
}

func TestReconcile_LowerLevelKeepsSubscriptions(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	ctx := context.Background()
	mustAdd(t, f.c, request("a"))

	if err := f.c.ReconcileAuthorization(ctx, model.AuthorizationWhenInUse); err != nil {
		t.Fatal(err)
	}
	if n := len(f.sim.MonitoredRegions()); n != 1 {
		t.Errorf("regions = %d, want 1", n)
	}

	mustAdd(t, f.c, request("b"))
	if n := len(f.sim.MonitoredRegions()); n != 1 {
		t.Errorf("regions after deferred add = %d, want 1", n)
	}
}

func TestReconcile_InvalidLevel(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	err := f.c.ReconcileAuthorization(context.Background(), "sometimes")
	if !errors.Is(err, ErrInvalidAuthorization) {
		t.Fatalf("err = %v, want ErrInvalidAuthorization", err)
	}
	if level, _ := f.c.Authorization(context.Background()); level != model.AuthorizationAlways {
		t.Errorf("Authorization = %s, want unchanged", level)
	}
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	mustAdd(t, f.c, request("a"))
	saves := f.st.Saves()

	if err := f.c.Remove(context.Background(), "missing"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if f.st.Saves() != saves {
		t.Error("no-op remove persisted the set")
	}
	if len(f.rec.removed) != 0 {
		t.Errorf("observer saw removals %v", f.rec.removed)
	}
	list, _ := f.c.List(context.Background())
	if len(list) != 1 || list[0].Identifier != "a" {
		t.Errorf("List = %v, want [a]", list)
	}
	regions := f.sim.MonitoredRegions()
	if len(regions) != 1 || regions[0].Identifier != "a" {
		t.Errorf("monitored regions = %v, want only a", regions)
	}
}

func TestRemove_StopsMonitoring(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	mustAdd(t, f.c, request("a"))
	mustAdd(t, f.c, request("b"))

	if err := f.c.Remove(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	regions := f.sim.MonitoredRegions()
	if len(regions) != 1 || regions[0].Identifier != "b" {
		t.Errorf("regions = %+v, want only b", regions)
	}
	if len(f.rec.removed) != 1 || f.rec.removed[0] != "a" {
		t.Errorf("removed = %v", f.rec.removed)
	}
	if _, ok, _ := f.c.Get(context.Background(), "a"); ok {
		t.Error("Get found removed geotification")
	}
}

func TestCheckAuthorization_SubscribesRestoredSet(t *testing.T) {
	st := memory.New(testLogger())
	first := newFixtureWithStore(t, st, alwaysConfig())
	mustAdd(t, first.c, request("one"))
	mustAdd(t, first.c, request("two"))
	first.c.Stop()

	second := newFixtureWithStore(t, st, alwaysConfig())
	ctx := context.Background()
	if err := second.c.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if err := second.c.CheckAuthorization(ctx); err != nil {
		t.Fatalf("CheckAuthorization: %v", err)
	}
	second.flush(t)

	if got := len(second.sim.MonitoredRegions()); got != 2 {
		t.Fatalf("regions after restart = %d, want 2", got)
	}
	if got := second.sim.AuthorizationRequests(); got != 0 {
		t.Errorf("requests = %d, want 0", got)
	}

	// A second check leaves existing subscriptions alone.
	if err := second.c.CheckAuthorization(ctx); err != nil {
		t.Fatal(err)
	}
	if got := len(second.sim.MonitoredRegions()); got != 2 {
		t.Errorf("regions after repeat check = %d, want 2", got)
	}
}

func TestReconcile_CountsRequestsNotConfirmedSubscriptions(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFixture(t, monitor.SimulatorConfig{Authorization: model.AuthorizationWhenInUse, MaxRegions: 1},
		WithLogger(logger))
	mustAdd(t, f.c, request("a"))
	mustAdd(t, f.c, request("b"))

	if err := f.c.ReconcileAuthorization(context.Background(), model.AuthorizationAlways); err != nil {
		t.Fatal(err)
	}
	f.flush(t)

	// The gateway accepts both requests and rejects b asynchronously.
	if got := len(f.sim.MonitoredRegions()); got != 1 {
		t.Fatalf("regions = %d, want 1", got)
	}
	out := logs.String()
	if !strings.Contains(out, "monitoring reconciled") || !strings.Contains(out, "requested=2") {
		t.Errorf("reconcile log missing requested=2:\n%s", out)
	}
	if strings.Contains(out, "monitoring started") {
		t.Errorf("log claims monitoring started:\n%s", out)
	}
}

func TestLoadAll_RestoresAfterRestart(t *testing.T) {
	st := memory.New(testLogger())
	first := newFixtureWithStore(t, st, alwaysConfig())
	want := []string{"one", "two", "three"}
	added := map[string]model.Geotification{}
	for _, id := range want {
		added[id] = mustAdd(t, first.c, request(id))
	}
	first.c.Stop()

	second := newFixtureWithStore(t, st, alwaysConfig())
	ctx := context.Background()
	if err := second.c.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	list, _ := second.c.List(ctx)
	if len(list) != len(want) {
		t.Fatalf("List len = %d, want %d", len(list), len(want))
	}
	for i, g := range list {
		if g.Identifier != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, g.Identifier, want[i])
		}
		if g != added[g.Identifier] {
			t.Errorf("restored %s differs", g.Identifier)
		}
	}
	if n := len(second.sim.MonitoredRegions()); n != 0 {
		t.Errorf("LoadAll subscribed %d regions", n)
	}
	if strings.Join(second.rec.added, ",") != "one,two,three" {
		t.Errorf("observer adds = %v", second.rec.added)
	}
}

func TestLoadAll_SkipsMalformedAndDuplicates(t *testing.T) {
	st := memory.New(testLogger())
	st.SetRaw([]byte(`[
		{"identifier":"a","coordinate":{"latitude":1,"longitude":2},"radius":50,"note":"first","event_type":"on_entry"},
		{"identifier":"b","coordinate":{"latitude":1,"longitude":2},"radius":-1,"note":"","event_type":"on_exit"},
		"garbage",
		{"identifier":"a","coordinate":{"latitude":3,"longitude":4},"radius":60,"note":"second","event_type":"on_exit"},
		{"identifier":"c","coordinate":{"latitude":5,"longitude":6},"radius":70,"note":"","event_type":"on_exit"}
	]`))
	f := newFixtureWithStore(t, st, alwaysConfig())
	ctx := context.Background()

	if err := f.c.LoadAll(ctx); err != nil {
		t.Fatal(err)
	}
	list, _ := f.c.List(ctx)
	if len(list) != 2 {
		t.Fatalf("List = %+v, want a and c", list)
	}
	if list[0].Identifier != "a" || list[0].Note != "first" || list[1].Identifier != "c" {
		t.Errorf("List = %+v", list)
	}
}

func TestLoadAll_Empty(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	if err := f.c.LoadAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n, _ := f.c.Count(context.Background()); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestPersistAll(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	mustAdd(t, f.c, request("a"))
	f.st.SetRaw([]byte("[]"))

	if err := f.c.PersistAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(f.st.Raw()), `"identifier":"a"`) {
		t.Errorf("stored = %s", f.st.Raw())
	}
}

func TestMonitoringFailed_ReportsWithoutRemoving(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	mustAdd(t, f.c, request("a"))

	cause := errors.New("region unavailable")
	if err := f.sim.Fail("a", cause); err != nil {
		t.Fatal(err)
	}
	f.flush(t)

	failed := f.rec.reportsOf(ReportMonitoringFailed)
	if len(failed) != 1 {
		t.Fatalf("failure reports = %d, want 1", len(failed))
	}
	var mf *MonitoringFailure
	if !errors.As(failed[0].Err, &mf) || mf.Identifier != "a" || !errors.Is(mf, cause) {
		t.Errorf("report err = %v", failed[0].Err)
	}
	if n, _ := f.c.Count(context.Background()); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestMonitoringFailed_RegionLimit(t *testing.T) {
	cfg := alwaysConfig()
	cfg.MaxRegions = 1
	f := newFixture(t, cfg)
	mustAdd(t, f.c, request("a"))
	mustAdd(t, f.c, request("b"))
	f.flush(t)

	failed := f.rec.reportsOf(ReportMonitoringFailed)
	if len(failed) != 1 || failed[0].Identifier != "b" || !errors.Is(failed[0].Err, monitor.ErrRegionLimit) {
		t.Errorf("failure reports = %+v", failed)
	}
}

func TestCheckAuthorization(t *testing.T) {
	tests := []struct {
		name         string
		cfg          monitor.SimulatorConfig
		wantRequests int
		wantRegions  int
	}{
		{
			name:         "already always",
			cfg:          alwaysConfig(),
			wantRequests: 0,
			wantRegions:  1,
		},
		{
			name:         "when in use granted always",
			cfg:          monitor.SimulatorConfig{Authorization: model.AuthorizationWhenInUse, GrantOnRequest: model.AuthorizationAlways},
			wantRequests: 1,
			wantRegions:  1,
		},
		{
			name:         "not determined unanswered",
			cfg:          monitor.SimulatorConfig{},
			wantRequests: 1,
			wantRegions:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.cfg)
			mustAdd(t, f.c, request("a"))

			if err := f.c.CheckAuthorization(context.Background()); err != nil {
				t.Fatal(err)
			}
			f.flush(t)

			if got := f.sim.AuthorizationRequests(); got != tt.wantRequests {
				t.Errorf("requests = %d, want %d", got, tt.wantRequests)
			}
			if got := len(f.sim.MonitoredRegions()); got != tt.wantRegions {
				t.Errorf("regions = %d, want %d", got, tt.wantRegions)
			}
		})
	}
}

func TestStop_ReturnsErrStopped(t *testing.T) {
	f := newFixture(t, alwaysConfig())
	f.c.Stop()
	f.c.Stop()

	if _, err := f.c.Add(context.Background(), request("late")); !errors.Is(err, ErrStopped) {
		t.Errorf("Add err = %v, want ErrStopped", err)
	}
	if _, err := f.c.Count(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Count err = %v, want ErrStopped", err)
	}
	// Callbacks after stop are dropped.
	f.sim.SetAuthorization(model.AuthorizationDenied)
}

func TestMetrics(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, alwaysConfig(), WithMetrics(m))
	mustAdd(t, f.c, request("a"))
	mustAdd(t, f.c, request("b"))
	_, _ = f.c.Add(context.Background(), request("a"))

	if got := testutil.ToFloat64(m.Geotifications); got != 2 {
		t.Errorf("geotifications gauge = %g, want 2", got)
	}
	if got := testutil.ToFloat64(m.MonitoredRegions); got != 2 {
		t.Errorf("monitored gauge = %g, want 2", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("add", "ok")); got != 2 {
		t.Errorf("add ok = %g, want 2", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("add", "error")); got != 1 {
		t.Errorf("add error = %g, want 1", got)
	}
}

func TestReport_Message(t *testing.T) {
	tests := []struct {
		kind      ReportKind
		wantTitle string
		contains  string
	}{
		{ReportMonitoringUnsupported, "Error", "not supported"},
		{ReportMonitoringDeferred, "Warning", "grant Geotify permission"},
		{ReportMonitoringFailed, "Error", "identifier: x"},
	}
	for _, tt := range tests {
		r := Report{Kind: tt.kind, Identifier: "x"}
		if r.Title() != tt.wantTitle {
			t.Errorf("%s Title = %q", tt.kind, r.Title())
		}
		if !strings.Contains(r.Message(), tt.contains) {
			t.Errorf("%s Message = %q", tt.kind, r.Message())
		}
	}
}
