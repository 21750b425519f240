// Package storagetest opens migrated throwaway databases for store tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"sportsmed/internal/adapters/storage"
)

// Open returns a migrated SQLite database in t's temp dir, closed on cleanup.
func Open(t testing.TB) *storage.TimedDB {
	t.Helper()
	db, err := storage.Connect(context.Background(), storage.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "store.db"),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(context.Background(), db, db.Dialect()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
