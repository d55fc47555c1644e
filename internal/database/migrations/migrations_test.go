package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"cache_entries", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus(t *testing.T) {
	t.Run("fresh database needs migration", func(t *testing.T) {
		db := openTestDB(t)

		err := CheckDBMigrationStatus(db)
		if err == nil {
			t.Fatal("CheckDBMigrationStatus() expected error for fresh database")
		}
		if err.Error() != "database has no schema version (needs migration)" {
			t.Errorf("CheckDBMigrationStatus() error = %q", err.Error())
		}
	})

	t.Run("current after migration", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() failed: %v", err)
		}
		if err := CheckDBMigrationStatus(db); err != nil {
			t.Errorf("CheckDBMigrationStatus() error = %v", err)
		}

		st, err := ReadStatus(db)
		if err != nil {
			t.Fatalf("ReadStatus() error = %v", err)
		}
		if !st.Current() || st.Latest != 1 {
			t.Errorf("status = %+v, want current at 1", st)
		}
	})
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() failed: %v", err)
	}
}

func TestSchema_CacheEntriesPrimaryKey(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	insert := "INSERT INTO cache_entries (namespace, key, value, updated_at) VALUES (?, ?, ?, 0)"
	if _, err := db.Exec(insert, "uuid", "page/ab/c", "blog"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := db.Exec(insert, "uuid", "page/ab/c", "other"); err == nil {
		t.Error("expected primary key violation for duplicate key")
	}
	if _, err := db.Exec(insert, "pages", "page/ab/c", "blog"); err != nil {
		t.Errorf("same key in another namespace should insert: %v", err)
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
