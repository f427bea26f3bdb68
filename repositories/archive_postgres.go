package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// JSON rather than JSONB keeps the event text exactly as it was received.
	createArchiveTableQuery = `
CREATE TABLE IF NOT EXISTS kind4_archive (
    key TEXT PRIMARY KEY,
    value JSON NOT NULL,
    archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

	upsertArchiveQuery = `
INSERT INTO kind4_archive (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, archived_at = now();
`

	// COLLATE "C" orders by bytes, like the Badger iterator.
	listArchiveKeysQuery = `
SELECT key
FROM kind4_archive
WHERE starts_with(key, $1)
ORDER BY key COLLATE "C";
`
)

// PostgresArchiveRepository stores the archive in a single table keyed like the Badger store.
type PostgresArchiveRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresArchiveRepository creates the archive table when it does not exist yet.
func NewPostgresArchiveRepository(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) (*PostgresArchiveRepository, error) {
	if _, err := pool.Exec(ctx, createArchiveTableQuery); err != nil {
		return nil, fmt.Errorf("failed to create kind4_archive table: %w", err)
	}
	return &PostgresArchiveRepository{pool: pool, log: log}, nil
}

func (r *PostgresArchiveRepository) Put(ctx context.Context, key string, value []byte) error {
	if _, err := r.pool.Exec(ctx, upsertArchiveQuery, key, string(value)); err != nil {
		return fmt.Errorf("failed to store %q: %w", key, err)
	}
	return nil
}

func (r *PostgresArchiveRepository) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.pool.Query(ctx, listArchiveKeysQuery, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read keys for prefix %q: %w", prefix, err)
	}
	r.log.Debug("Listed archive keys", "prefix", prefix, "count", len(keys))
	return keys, nil
}
