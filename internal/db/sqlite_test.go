package db

import (
	"path/filepath"
	"testing"
)

func TestMigrationsCreateTables(t *testing.T) {
	database, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDB returned error: %v", err)
	}
	defer database.Close()

	if err := RunMigrations(database); err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}

	// second run is a no-op
	if err := RunMigrations(database); err != nil {
		t.Fatalf("second RunMigrations returned error: %v", err)
	}

	for _, table := range []string{"document_nodes", "document_contents", "vector_records"} {
		var name string
		err := database.Get(&name, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1", table)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestNewSQLiteDBCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docvault.db")

	database, err := NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("NewSQLiteDB returned error: %v", err)
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}
