package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"folio/internal/cms"
)

// SQLiteCache stores cache entries in the cache_entries table. Each
// namespace is an independent cache, so the UUID and page caches can
// share one database.
type SQLiteCache struct {
	db        *sql.DB
	namespace string
	clock     cms.Clock
}

// NewSQLiteCache creates a cache over a migrated database.
func NewSQLiteCache(db *sql.DB, namespace string, clock cms.Clock) *SQLiteCache {
	if clock == nil {
		clock = cms.RealClock{}
	}
	return &SQLiteCache{db: db, namespace: namespace, clock: clock}
}

func (c *SQLiteCache) Get(key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(context.Background(),
		"SELECT value FROM cache_entries WHERE namespace = ? AND key = ?",
		c.namespace, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading cache entry %q: %w", key, err)
	}
	return value, true, nil
}

func (c *SQLiteCache) Set(key, value string) error {
	_, err := c.db.ExecContext(context.Background(), `
		INSERT INTO cache_entries (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		c.namespace, key, value, c.clock.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %q: %w", key, err)
	}
	return nil
}

func (c *SQLiteCache) Remove(key string) error {
	_, err := c.db.ExecContext(context.Background(),
		"DELETE FROM cache_entries WHERE namespace = ? AND key = ?", c.namespace, key)
	if err != nil {
		return fmt.Errorf("removing cache entry %q: %w", key, err)
	}
	return nil
}

func (c *SQLiteCache) Flush() error {
	_, err := c.db.ExecContext(context.Background(),
		"DELETE FROM cache_entries WHERE namespace = ?", c.namespace)
	if err != nil {
		return fmt.Errorf("flushing cache %q: %w", c.namespace, err)
	}
	return nil
}

// UpdatedAt returns when key was last written, or the zero time.
func (c *SQLiteCache) UpdatedAt(key string) (time.Time, error) {
	var ts int64
	err := c.db.QueryRowContext(context.Background(),
		"SELECT updated_at FROM cache_entries WHERE namespace = ? AND key = ?",
		c.namespace, key,
	).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("reading cache entry %q: %w", key, err)
	}
	return time.Unix(ts, 0).UTC(), nil
}

// Compile-time check that SQLiteCache implements cms.Cache.
var _ cms.Cache = (*SQLiteCache)(nil)
