package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"folio/internal/config"
)

// NewDatabaseFromConfig opens and migrates the database the config describes.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return Open(filepath.Join(cfg.DataDir, "folio.db"))
	case "memory":
		return Open(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
