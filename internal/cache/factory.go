// Package cache provides the key-value backends behind the UUID and page
// caches.
package cache

import (
	"database/sql"
	"fmt"
	"io"
	"path/filepath"

	"folio/internal/cms"
	"folio/internal/config"
	"folio/internal/database"
)

// NewCacheFromConfig creates a cache based on the cache config type.
// namespace separates caches sharing a backend (a subdirectory for file,
// sqlite table rows, redis and badger key prefixes). db is only used by
// the sqlite type.
func NewCacheFromConfig(cfg config.CacheConfig, namespace string, db *sql.DB) (cms.Cache, error) {
	prefix := cfg.Prefix + namespace + ":"

	switch cfg.Type {
	case "", "none":
		return Null{}, nil
	case "memory":
		m, err := NewMemory(cfg.Size)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "file":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache requires dir to be set")
		}
		f, err := NewFile(filepath.Join(cfg.Dir, cfg.Prefix+namespace))
		if err != nil {
			return nil, err
		}
		return f, nil
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite cache requires a database")
		}
		return database.NewSQLiteCache(db, cfg.Prefix+namespace, nil), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache requires redis_addr to be set")
		}
		r, err := NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, prefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "badger":
		b, err := NewBadger(cfg.Dir, prefix)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// Close closes c if its backend holds a connection.
func Close(c cms.Cache) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
