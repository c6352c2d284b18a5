package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/alfredjeanlab/geotify/internal/config"
	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/events"
	"github.com/alfredjeanlab/geotify/internal/hooks"
	"github.com/alfredjeanlab/geotify/internal/metrics"
	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/monitor"
	"github.com/alfredjeanlab/geotify/internal/platform"
	"github.com/alfredjeanlab/geotify/internal/server"
	"github.com/alfredjeanlab/geotify/internal/store"
	"github.com/alfredjeanlab/geotify/internal/store/memory"
	"github.com/alfredjeanlab/geotify/internal/store/postgres"
	geosync "github.com/alfredjeanlab/geotify/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Run the geotification coordinator",
	GroupID:           "system",
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := newService(cfg, logger)
		if err != nil {
			return err
		}
		if err := svc.start(ctx); err != nil {
			svc.shutdown(context.Background())
			return err
		}

		<-ctx.Done()
		logger.Info("received signal, shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc.shutdown(shutdownCtx)
		logger.Info("shutdown complete")
		return nil
	},
}

// service owns every long-lived component of a running coordinator.
type service struct {
	cfg    *config.Config
	logger *slog.Logger

	store     store.Store
	gateway   *monitor.Simulator
	publisher events.Publisher
	alerts    *hooks.AlertHook
	coord     *coordinator.Coordinator
	health    *health.Server
	grpc      *grpc.Server
	http      *http.Server
	scheduler *geosync.Scheduler

	subscriber   events.Subscriber
	bridgeCancel context.CancelFunc
	bridgeDone   chan struct{}

	loaded   bool
	stopOnce sync.Once
	httpAddr string
	grpcAddr string
}

// newService builds the components described by cfg without starting them.
func newService(cfg *config.Config, logger *slog.Logger) (*service, error) {
	s := &service{cfg: cfg, logger: logger}

	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(context.Background(), cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		s.store = pg
	} else {
		s.store = memory.New(logger)
		logger.Warn("GEOTIFY_DATABASE_URL not set, geotifications are kept in memory only")
	}

	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			s.store.Close()
			return nil, err
		}
		s.publisher = pub
		logger.Info("events enabled", "nats_url", cfg.NATSURL)
	} else {
		s.publisher = &events.NoopPublisher{}
		logger.Info("events disabled (GEOTIFY_NATS_URL not set)")
	}

	m, err := metrics.New(nil)
	if err != nil {
		s.closeBackends()
		return nil, err
	}

	s.gateway = monitor.NewSimulator(monitor.SimulatorConfig{
		MaxRegions:     cfg.MaxRegions,
		MaxRadius:      cfg.MaxRadius,
		Unavailable:    !cfg.MonitoringAvailable,
		Authorization:  cfg.Authorization,
		GrantOnRequest: cfg.GrantAuthorization,
	})

	hub := server.NewEventHub(logger)
	notifier := events.NewNotifier(s.publisher, logger)
	opts := []coordinator.Option{
		coordinator.WithLogger(logger),
		coordinator.WithCapacity(cfg.Capacity),
		coordinator.WithMetrics(m),
		coordinator.WithObserver(hub),
		coordinator.WithReporter(hub),
		coordinator.WithObserver(notifier),
		coordinator.WithReporter(notifier),
	}
	if cfg.AlertCommand != "" {
		s.alerts = hooks.NewAlertHook(cfg.AlertCommand, cfg.AlertTimeout, logger)
		opts = append(opts, coordinator.WithReporter(s.alerts))
		logger.Info("alert hook enabled", "command", cfg.AlertCommand)
	}
	s.coord = coordinator.New(s.store, s.gateway, opts...)

	geoServer := server.NewGeotifyServer(s.coord, s.gateway,
		server.WithEventHub(hub),
		server.WithMetrics(m),
		server.WithLogger(logger),
	)
	s.health = server.NewHealthServer()
	s.grpc = server.NewGRPCServer(s.health, cfg.AuthToken, logger)
	s.http = &http.Server{
		Handler:           geoServer.NewHTTPHandler(cfg.AuthToken),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.scheduler = s.newScheduler(m)
	return s, nil
}

// newScheduler returns a sync scheduler for the configured destinations, or
// nil when sync is disabled or has nowhere to write.
func (s *service) newScheduler(m *metrics.Collector) *geosync.Scheduler {
	cfg := s.cfg
	if cfg.SyncInterval <= 0 {
		return nil
	}

	var dests []geosync.Destination
	if cfg.SyncS3Bucket != "" {
		s3Dest, err := geosync.NewS3Destination(context.Background(), geosync.S3Config{
			Bucket:   cfg.SyncS3Bucket,
			Key:      cfg.SyncS3Key,
			Region:   cfg.SyncS3Region,
			Endpoint: cfg.SyncS3Endpoint,
		})
		if err != nil {
			s.logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			s.logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
		}
	}
	if cfg.SyncGitRepo != "" {
		dests = append(dests, geosync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch))
		s.logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
	}
	if len(dests) == 0 {
		return nil
	}
	return geosync.NewScheduler(s.store, dests, cfg.SyncInterval,
		geosync.WithLogger(s.logger),
		geosync.WithMetrics(m),
	)
}

// start restores the persisted set, settles authorization and begins
// serving. Call shutdown even when start fails.
func (s *service) start(ctx context.Context) error {
	s.coord.Start()
	if err := s.coord.LoadAll(ctx); err != nil {
		return fmt.Errorf("loading geotifications: %w", err)
	}
	s.loaded = true
	if err := s.coord.CheckAuthorization(ctx); err != nil {
		return fmt.Errorf("checking authorization: %w", err)
	}

	if s.cfg.NATSURL != "" {
		sub, err := events.NewNATSSubscriber(s.cfg.NATSURL)
		if err != nil {
			s.logger.Error("failed to create platform subscriber", "err", err)
		} else {
			s.subscriber = sub
			bridge := platform.NewBridge(simulatorCallbacks{s.gateway, s.logger}, s.logger)
			var bridgeCtx context.Context
			bridgeCtx, s.bridgeCancel = context.WithCancel(context.Background())
			s.bridgeDone = make(chan struct{})
			go func() {
				defer close(s.bridgeDone)
				if err := bridge.StartSubscriber(bridgeCtx, sub); err != nil {
					s.logger.Error("platform subscriber error", "err", err)
				}
			}()
		}
	}

	if s.scheduler != nil {
		s.scheduler.Start()
		s.logger.Info("sync scheduler started", "interval", s.cfg.SyncInterval)
	}

	grpcLis, err := net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		return err
	}
	s.grpcAddr = grpcLis.Addr().String()
	go func() {
		s.logger.Info("gRPC server listening", "addr", s.grpcAddr)
		if err := s.grpc.Serve(grpcLis); err != nil {
			s.logger.Error("gRPC server error", "err", err)
		}
	}()

	httpLis, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return err
	}
	s.httpAddr = httpLis.Addr().String()
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.httpAddr)
		if err := s.http.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "err", err)
		}
	}()

	server.SetServing(s.health, true)
	s.logger.Info("geotify coordinator started", "grpc_addr", s.grpcAddr, "http_addr", s.httpAddr)
	return nil
}

// shutdown stops every component in reverse dependency order. Only the
// first call has any effect.
func (s *service) shutdown(ctx context.Context) {
	s.stopOnce.Do(func() { s.stop(ctx) })
}

func (s *service) stop(ctx context.Context) {
	server.SetServing(s.health, false)

	if s.bridgeCancel != nil {
		s.bridgeCancel()
		<-s.bridgeDone
		s.logger.Info("platform subscriber stopped")
	}
	if s.subscriber != nil {
		s.subscriber.Close()
	}

	s.grpc.GracefulStop()
	s.logger.Info("gRPC server stopped")
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "err", err)
	}
	s.logger.Info("HTTP server stopped")

	// An unloaded coordinator would overwrite the stored set with nothing.
	if s.loaded {
		if err := s.coord.PersistAll(ctx); err != nil {
			s.logger.Error("final persist failed", "err", err)
		}
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.logger.Info("sync scheduler stopped")
	}
	s.coord.Stop()
	if s.alerts != nil {
		s.alerts.Wait()
	}
	s.closeBackends()
}

func (s *service) closeBackends() {
	if err := s.publisher.Close(); err != nil {
		s.logger.Error("error closing publisher", "err", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "err", err)
	}
}

// simulatorCallbacks routes platform callbacks from the event bus through
// the simulator, which forwards them to the coordinator.
type simulatorCallbacks struct {
	sim    *monitor.Simulator
	logger *slog.Logger
}

func (c simulatorCallbacks) AuthorizationChanged(level model.AuthorizationLevel) {
	c.sim.SetAuthorization(level)
}

func (c simulatorCallbacks) MonitoringFailed(identifier string, err error) {
	if ferr := c.sim.Fail(identifier, err); ferr != nil {
		c.logger.Warn("platform: monitoring failure for unknown region", "identifier", identifier, "err", ferr)
	}
}
