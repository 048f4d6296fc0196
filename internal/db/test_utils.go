package db

import (
	"fmt"
	"strings"
	"testing"
)

// SetupTestDB creates a private in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *Database {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	database, err := NewDatabase(DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Cleanup on test completion
	t.Cleanup(func() {
		database.Close()
	})

	return database
}
