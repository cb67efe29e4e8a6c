package database

import (
	"path/filepath"
	"testing"
)

func TestNewAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detectiveai.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	// Running migrations again must be a no-op.
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate should be idempotent: %v", err)
	}

	var version int
	err = db.Conn().QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("expected schema version %d, got %d", len(migrations), version)
	}
}

func TestNewInvalidPath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "nested", "detectiveai.db")); err == nil {
		t.Error("expected error for unreachable database path")
	}
}
