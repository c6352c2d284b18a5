// Package postgres implements the store.Store interface backed by PostgreSQL.
// The whole geotification set lives in one row of the saved_items table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps the set as a JSON array under one key.
type PostgresStore struct {
	db     *sql.DB
	key    string
	logger *slog.Logger
}

var _ store.Store = (*PostgresStore)(nil)

// Pool limits. The coordinator writes from a single goroutine, so a small
// pool suffices.
const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
	connectTimeout  = 10 * time.Second
)

// New connects to databaseURL, applies pending migrations and returns the
// store. The caller closes it.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return newWithDB(db, logger), nil
}

func newWithDB(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, key: store.SavedItemsKey, logger: logger}
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migrations driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Save overwrites the stored set in a single upsert, so readers never
// observe a partially written set.
func (s *PostgresStore) Save(ctx context.Context, items []model.Geotification) error {
	data, err := store.EncodeItems(items)
	if err != nil {
		return err
	}
	if err := queryUpsertItems(ctx, s.db, s.key, data); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	return nil
}

// LoadAll reads the stored set. A missing row yields an empty set.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]model.Geotification, error) {
	data, err := queryGetItems(ctx, s.db, s.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}
	items, skipped := store.DecodeItems(data)
	store.LogSkipped(s.logger, skipped)
	return items, nil
}
