package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryUpsertItems(ctx context.Context, db executor, key string, items []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO saved_items (key, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`,
		key, items,
	)
	return err
}

// queryGetItems returns the raw JSON array stored under key, or nil when no
// row exists.
func queryGetItems(ctx context.Context, db executor, key string) ([]byte, error) {
	var items []byte
	err := db.QueryRowContext(ctx, `SELECT items FROM saved_items WHERE key = $1`, key).Scan(&items)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}
