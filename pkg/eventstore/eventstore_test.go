package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to a local PostgreSQL instance and prepares the events
// table. Tests are skipped when no database is reachable.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	pgUser := os.Getenv("PGUSER")
	pgPassword := os.Getenv("PGPASSWORD")
	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgDB := os.Getenv("PGDATABASE")

	if pgUser == "" {
		pgUser = "user"
	}
	if pgPassword == "" {
		pgPassword = "password"
	}
	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgDB == "" {
		pgDB = "testdb"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			aggregate_id UUID NOT NULL,
			aggregate_type TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_data JSONB NOT NULL,
			metadata JSONB,
			version INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (aggregate_id, version)
		);
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

type testEvent struct {
	Message string `json:"message"`
}

func appendOne(t *testing.T, store *EventStore, aggregateID uuid.UUID, expectedVersion int, msg string) error {
	t.Helper()
	data, err := json.Marshal(testEvent{Message: msg})
	require.NoError(t, err)
	return store.AppendEvents(context.Background(), aggregateID, "test_aggregate", expectedVersion, []Event{
		{EventType: "TestEvent", EventData: data},
	})
}

func TestAppendAndLoadRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	store := NewEventStore(db)

	aggregateID := uuid.New()
	require.NoError(t, appendOne(t, store, aggregateID, 0, "first"))
	require.NoError(t, appendOne(t, store, aggregateID, 1, "second"))

	events, err := store.LoadEvents(context.Background(), aggregateID, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, 1, events[0].Version)
	require.Equal(t, 2, events[1].Version)

	version, err := store.GetCurrentVersion(context.Background(), aggregateID)
	require.NoError(t, err)
	require.Equal(t, 2, version)
}

func TestAppendRejectsStaleVersion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	store := NewEventStore(db)

	aggregateID := uuid.New()
	require.NoError(t, appendOne(t, store, aggregateID, 0, "first"))

	// A second writer still holding version 0 must lose.
	err := appendOne(t, store, aggregateID, 0, "stale")
	require.ErrorIs(t, err, ErrVersionConflict)

	events, err := store.LoadEvents(context.Background(), aggregateID, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func BenchmarkAppendEvents(b *testing.B) {
	db := setupTestDB(b)
	defer db.Close()
	store := NewEventStore(db)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		aggregateID := uuid.New()
		eventData, _ := json.Marshal(testEvent{Message: fmt.Sprintf("event %d", i)})
		events := []Event{
			{EventType: "TestEvent", EventData: eventData},
		}
		b.StartTimer()

		if err := store.AppendEvents(context.Background(), aggregateID, "test_aggregate", 0, events); err != nil {
			b.Fatalf("AppendEvents failed: %v", err)
		}
	}
}

func BenchmarkLoadEvents(b *testing.B) {
	db := setupTestDB(b)
	defer db.Close()
	store := NewEventStore(db)

	aggregateID := uuid.New()
	for i := 0; i < 10; i++ {
		eventData, _ := json.Marshal(testEvent{Message: fmt.Sprintf("event %d", i)})
		events := []Event{
			{EventType: "TestEvent", EventData: eventData},
		}
		if err := store.AppendEvents(context.Background(), aggregateID, "test_aggregate", i, events); err != nil {
			b.Fatalf("failed to seed events: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := store.LoadEvents(context.Background(), aggregateID, 0, 0); err != nil {
			b.Fatalf("LoadEvents failed: %v", err)
		}
	}
}
