package database

import (
	"path/filepath"
	"testing"
)

// setupTestDB creates a migrated SQLite database in a test temp
// directory. The connection is closed automatically when the test ends.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "detectiveai_test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}
