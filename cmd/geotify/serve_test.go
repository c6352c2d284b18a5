package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/alfredjeanlab/geotify/internal/client"
	"github.com/alfredjeanlab/geotify/internal/config"
	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/events"
	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/store"
	"github.com/alfredjeanlab/geotify/internal/store/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:            "127.0.0.1:0",
		GRPCAddr:            "127.0.0.1:0",
		Capacity:            20,
		MaxRadius:           10000,
		MaxRegions:          20,
		MonitoringAvailable: true,
		Authorization:       model.AuthorizationNotDetermined,
		GrantAuthorization:  model.AuthorizationAlways,
		AlertTimeout:        time.Second,
	}
}

func startService(t *testing.T, cfg *config.Config) *service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := newService(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.start(context.Background()); err != nil {
		svc.shutdown(context.Background())
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.shutdown(context.Background()) })
	return svc
}

func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func coordinatorRequest(id string) coordinator.AddRequest {
	return coordinator.AddRequest{
		Identifier: id,
		Coordinate: model.Coordinate{Latitude: 48.85, Longitude: 2.35},
		Radius:     150,
		Note:       "badge in",
		EventType:  model.EventOnEntry,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestService_ServesCoordinator(t *testing.T) {
	svc := startService(t, testConfig())
	ctx := context.Background()
	c := client.NewHTTPClient("http://"+svc.httpAddr, "")

	// Startup requested Always authorization, which the simulator grants.
	level, err := c.Authorization(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if level != model.AuthorizationAlways {
		t.Errorf("authorization = %q, want authorized_always", level)
	}

	if _, err := c.AddGeotification(ctx, &client.AddGeotificationRequest{
		Identifier: "home",
		Coordinate: model.Coordinate{Latitude: 51.5, Longitude: -0.12},
		Radius:     200,
		EventType:  model.EventOnExit,
	}); err != nil {
		t.Fatal(err)
	}
	snap, err := c.ListGeotifications(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Items) != 1 || !snap.Items[0].Monitored {
		t.Errorf("items = %+v, want home monitored", snap.Items)
	}

	probe, err := client.NewHealthProbe(svc.grpcAddr, "")
	if err != nil {
		t.Fatal(err)
	}
	defer probe.Close()
	status, err := probe.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status != "SERVING" {
		t.Errorf("gRPC health = %q, want SERVING", status)
	}

	// The shutdown persist keeps the set in the store.
	svc.shutdown(ctx)
	items, skipped := store.DecodeItems(svc.store.(*memory.MemoryStore).Raw())
	if len(skipped) != 0 || len(items) != 1 || items[0].Identifier != "home" {
		t.Errorf("stored = %+v", items)
	}
}

func TestService_PlatformCallbacksOverNATS(t *testing.T) {
	cfg := testConfig()
	cfg.NATSURL = startTestNATS(t)
	svc := startService(t, cfg)
	ctx := context.Background()

	sub, err := events.NewNATSSubscriber(cfg.NATSURL)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	reports, cancel, err := sub.Subscribe(events.TopicMonitoringFailed)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	if _, err := svc.coord.Add(ctx, coordinatorRequest("office")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "office to be monitored", func() bool { return len(svc.gateway.MonitoredRegions()) == 1 })

	if err := pub.Publish(ctx, events.TopicPlatformMonitoringFailed, events.MonitoringFailed{Identifier: "office", Error: "lost"}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-reports:
		var r events.MonitoringReport
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			t.Fatal(err)
		}
		if r.Identifier != "office" || !strings.Contains(r.Message, "office") {
			t.Errorf("report = %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for monitoring failure report")
	}
	if n := len(svc.gateway.MonitoredRegions()); n != 0 {
		t.Errorf("regions = %d, want 0 after failure", n)
	}

	if err := pub.Publish(ctx, events.TopicPlatformAuthorization, events.AuthorizationChanged{Authorization: model.AuthorizationDenied}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "authorization to drop", func() bool {
		level, err := svc.coord.Authorization(ctx)
		return err == nil && level == model.AuthorizationDenied
	})
}
