// Package sync backs up the saved geotification set as JSONL to S3 or a
// git repository on a fixed interval.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/geotify/internal/metrics"
)

// Sync results recorded per destination.
const (
	ResultWritten   = "written"
	ResultUnchanged = "unchanged"
	ResultError     = "error"
)

// finalSyncTimeout bounds the flush Stop performs.
const finalSyncTimeout = 30 * time.Second

// Destination is a backup target.
type Destination interface {
	// Name identifies the destination in logs and metrics.
	Name() string
	// Write stores b, replacing the previous backup.
	Write(ctx context.Context, b *Backup) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithMetrics records each destination's sync results in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler periodically writes the stored set to its destinations. A
// destination is only written when the set differs from what it last
// accepted; failed writes are retried on the next tick.
type Scheduler struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger
	metrics      *metrics.Collector

	mu      sync.Mutex // serializes SyncNow
	written map[string]string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that backs up src to dests every interval.
func NewScheduler(src Source, dests []Destination, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:       src,
		destinations: dests,
		interval:     interval,
		logger:       slog.Default(),
		written:      make(map[string]string, len(dests)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start syncs once immediately, then on every tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop ends the tick loop and, if the scheduler was started, flushes the
// current set one last time.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), finalSyncTimeout)
	defer cancel()
	if err := s.SyncNow(ctx); err != nil {
		s.logger.Error("final sync failed", "err", err)
	}
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.SyncNow(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sync failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncNow exports the set and writes it to every destination that does not
// already hold it. Destination failures are joined into the returned error;
// one failing destination does not stop the others.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.source.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load geotifications: %w", err)
	}
	b, err := NewBackup(items)
	if err != nil {
		return err
	}

	var errs []error
	wrote := 0
	for _, dest := range s.destinations {
		name := dest.Name()
		if s.written[name] == b.Digest {
			s.metrics.RecordSync(name, ResultUnchanged)
			continue
		}
		if err := dest.Write(ctx, b); err != nil {
			s.metrics.RecordSync(name, ResultError)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		s.written[name] = b.Digest
		s.metrics.RecordSync(name, ResultWritten)
		wrote++
	}

	if wrote > 0 {
		s.logger.Info("sync completed", "destinations", wrote, "geotifications", b.Count, "bytes", len(b.Data))
	}
	return errors.Join(errs...)
}
