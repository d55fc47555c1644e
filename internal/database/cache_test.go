package database_test

import (
	"testing"
	"time"

	"folio/internal/database"
	"folio/internal/testutil"
)

func TestSQLiteCache(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	clock := testutil.FixedClock()

	uuids := database.NewSQLiteCache(db, "uuid", clock)
	pages := database.NewSQLiteCache(db, "pages", clock)

	t.Run("miss", func(t *testing.T) {
		v, ok, err := uuids.Get("page/ab/cd")
		if err != nil || ok || v != "" {
			t.Fatalf("Get = %q, %v, %v", v, ok, err)
		}
	})

	t.Run("set and overwrite", func(t *testing.T) {
		if err := uuids.Set("page/ab/cd", "blog"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		clock.Advance(time.Minute)
		if err := uuids.Set("page/ab/cd", "news"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		v, ok, err := uuids.Get("page/ab/cd")
		if err != nil || !ok || v != "news" {
			t.Fatalf("Get = %q, %v, %v", v, ok, err)
		}
		at, err := uuids.UpdatedAt("page/ab/cd")
		if err != nil {
			t.Fatalf("UpdatedAt: %v", err)
		}
		if !at.Equal(clock.Now().Truncate(time.Second)) {
			t.Errorf("UpdatedAt = %v, want %v", at, clock.Now())
		}
	})

	t.Run("namespaces are independent", func(t *testing.T) {
		if err := pages.Set("page/ab/cd", "<html>"); err != nil {
			t.Fatal(err)
		}
		if err := pages.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		if _, ok, _ := pages.Get("page/ab/cd"); ok {
			t.Error("flushed entry still present")
		}
		if v, ok, _ := uuids.Get("page/ab/cd"); !ok || v != "news" {
			t.Errorf("other namespace lost its entry: %q, %v", v, ok)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := uuids.Remove("page/ab/cd"); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if _, ok, _ := uuids.Get("page/ab/cd"); ok {
			t.Error("entry survived Remove")
		}
		at, err := uuids.UpdatedAt("page/ab/cd")
		if err != nil || !at.IsZero() {
			t.Errorf("UpdatedAt after remove = %v, %v", at, err)
		}
	})
}
