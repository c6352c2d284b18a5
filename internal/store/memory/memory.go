// Package memory implements store.Store in process memory. It keeps the set
// in its serialized form so that restores go through the same per-entry
// decoding as durable stores.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/store"
)

var errClosed = errors.New("memory store is closed")

// MemoryStore is a store.Store holding a single serialized record.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	saves  int
	closed bool
	logger *slog.Logger
}

// Compile-time check that MemoryStore implements store.Store.
var _ store.Store = (*MemoryStore)(nil)

// New returns an empty MemoryStore. A nil logger uses slog.Default().
func New(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{logger: logger}
}

func (s *MemoryStore) Save(_ context.Context, items []model.Geotification) error {
	data, err := store.EncodeItems(items)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	s.data = data
	s.saves++
	return nil
}

func (s *MemoryStore) LoadAll(_ context.Context) ([]model.Geotification, error) {
	s.mu.Lock()
	data := s.data
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errClosed
	}

	items, skipped := store.DecodeItems(data)
	store.LogSkipped(s.logger, skipped)
	return items, nil
}

// Raw returns a copy of the serialized record.
func (s *MemoryStore) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// SetRaw replaces the serialized record, e.g. to seed a restore.
func (s *MemoryStore) SetRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close marks the store closed; later calls fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
