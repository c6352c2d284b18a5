package store

import (
	"context"

	"github.com/alfredjeanlab/geotify/internal/model"
)

// SavedItemsKey is the fixed key the geotification set is stored under.
const SavedItemsKey = "savedItems"

// Store defines the persistence interface for the geotification set.
// The set is only ever written wholesale.
type Store interface {
	// Save replaces the stored set with items, in order.
	Save(ctx context.Context, items []model.Geotification) error

	// LoadAll returns the stored set, or an empty slice when nothing has
	// been saved. Unreadable entries are dropped individually.
	LoadAll(ctx context.Context) ([]model.Geotification, error)

	// Lifecycle
	Close() error
}
