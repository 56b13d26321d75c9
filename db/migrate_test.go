package db

import (
	"database/sql"
	"os"
	"testing"
)

func setupMigrateDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres migration test")
	}
	database, err := Connect(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestMigrationsUpDownUp(t *testing.T) {
	database := setupMigrateDB(t)

	if err := RunMigrations(database); err != nil {
		t.Fatalf("up: %v", err)
	}
	var one int
	if err := database.QueryRow(`SELECT 1 FROM videos LIMIT 1`).Scan(&one); err != nil && err != sql.ErrNoRows {
		t.Fatalf("videos table missing after up: %v", err)
	}

	if err := MigrateDown(database); err != nil {
		t.Fatalf("down: %v", err)
	}
	err := database.QueryRow(`SELECT 1 FROM videos LIMIT 1`).Scan(&one)
	if err == nil || err == sql.ErrNoRows {
		t.Fatal("videos table still present after down")
	}

	// Leave the schema in place for the repository tests.
	if err := RunMigrations(database); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
}
