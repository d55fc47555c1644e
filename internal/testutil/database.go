package testutil

import (
	"database/sql"
	"testing"

	"folio/internal/database"
)

// NewTestDatabase opens a migrated in-memory SQLite database that is
// closed when the test completes.
func NewTestDatabase(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
