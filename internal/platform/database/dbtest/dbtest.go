// Package dbtest opens a migrated, seeded in-memory database for tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"checkops/internal/platform/database"
)

// New returns an in-memory database with all migrations and the default
// plans applied. The pool is limited to one connection, so callers must not
// use the *sql.DB while holding an open transaction on it.
func New(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", database.DSN("file::memory:"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedPlans(ctx, db); err != nil {
		t.Fatalf("seed plans: %v", err)
	}
	return db
}
