// Package testdb connects package tests to a local PostgreSQL instance and
// applies the repo schema. Tests are skipped when no database is reachable.
package testdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	_ "github.com/lib/pq"
)

// Connect opens the test database, applies deploy/schema.sql and returns
// the connection. The caller owns closing it.
func Connect(t testing.TB) *sql.DB {
	t.Helper()

	pgUser := envOr("PGUSER", "user")
	pgPassword := envOr("PGPASSWORD", "password")
	pgHost := envOr("PGHOST", "localhost")
	pgPort := envOr("PGPORT", "5432")
	pgDB := envOr("PGDATABASE", "testdb")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	_, thisFile, _, _ := runtime.Caller(0)
	schemaPath := filepath.Join(filepath.Dir(thisFile), "..", "..", "deploy", "schema.sql")
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return db
}

// Truncate empties the given tables between test cases.
func Truncate(t testing.TB, db *sql.DB, tables ...string) {
	t.Helper()
	if len(tables) == 0 {
		return
	}
	_, err := db.Exec("TRUNCATE TABLE " + strings.Join(tables, ", ") + " CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func envOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
