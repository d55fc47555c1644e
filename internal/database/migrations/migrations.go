// Package migrations holds the embedded schema for the folio database.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Status describes where a database stands relative to the embedded schema.
type Status struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Current reports whether the database is exactly at the latest version.
func (s Status) Current() bool {
	return !s.Dirty && s.Version == s.Latest
}

// ReadStatus returns the schema version of db and the latest embedded
// version. A database that was never migrated has version 0.
func ReadStatus(db *sql.DB) (Status, error) {
	m, err := newMigrate(db)
	if err != nil {
		return Status{}, err
	}
	// m is not closed: that would close db, which the caller owns.

	var st Status
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return Status{}, fmt.Errorf("reading schema version: %w", err)
	default:
		st.Version, st.Dirty = version, dirty
	}

	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return Status{}, fmt.Errorf("reading migration files: %w", err)
	}
	defer src.Close()

	if st.Latest, err = latestVersion(src); err != nil {
		return Status{}, fmt.Errorf("finding latest migration: %w", err)
	}
	return st, nil
}

// CheckDBMigrationStatus returns nil if the schema is up to date and an
// error describing the mismatch otherwise.
func CheckDBMigrationStatus(db *sql.DB) error {
	st, err := ReadStatus(db)
	if err != nil {
		return err
	}
	switch {
	case st.Version == 0:
		return fmt.Errorf("database has no schema version (needs migration)")
	case st.Dirty:
		return fmt.Errorf("database is dirty at version %d", st.Version)
	case st.Version < st.Latest:
		return fmt.Errorf("database is at version %d, latest is %d", st.Version, st.Latest)
	case st.Version > st.Latest:
		return fmt.Errorf("database version %d is newer than this binary (%d)", st.Version, st.Latest)
	}
	return nil
}

// MigrateUp applies every pending migration. An up-to-date database is
// not an error.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("creating migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
