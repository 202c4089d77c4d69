package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zoobzio/delta"
)

// setupPostgres connects to the database named by DELTA_POSTGRES_URL,
// skipping the test when it is unset, and installs the state table and its
// notify trigger.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("DELTA_POSTGRES_URL")
	if url == "" {
		t.Skip("DELTA_POSTGRES_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
	})

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE OR REPLACE FUNCTION notify_state_change() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('state_changed', NEW.key);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;

		DROP TRIGGER IF EXISTS state_change_trigger ON state;
		CREATE TRIGGER state_change_trigger
			AFTER INSERT OR UPDATE ON state
			FOR EACH ROW EXECUTE FUNCTION notify_state_change();
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return pool
}

func TestCell_RoundTrip(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	cell := NewCell(ctx, pool, "roundtrip")
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), "DELETE FROM state WHERE key = $1", "roundtrip") })

	if got := cell.Get(); got != "" {
		t.Errorf("expected empty value for missing row, got %q", got)
	}

	cell.Set("v1")
	cell.Set("v2")
	if err := cell.Err(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := cell.Get(); got != "v2" {
		t.Errorf("expected v2, got %q", got)
	}
}

func TestCell_ReportsMissingTable(t *testing.T) {
	pool := setupPostgres(t)
	cell := NewCell(context.Background(), pool, "k", WithTable("no_such_table"))

	_ = cell.Get()
	if cell.Err() == nil {
		t.Error("expected error for missing table")
	}
}

func TestScheduler_FiltersByKey(t *testing.T) {
	pool := setupPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	triggers, err := NewScheduler(pool, "state_changed", "watched").Schedule(ctx)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM state WHERE key IN ('watched', 'other')")
	})

	NewCell(ctx, pool, "other").Set("x")
	select {
	case <-triggers:
		t.Fatal("expected no trigger for another key")
	case <-time.After(200 * time.Millisecond):
	}

	NewCell(ctx, pool, "watched").Set("y")
	select {
	case <-triggers:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for trigger")
	}
}

func TestHistory_UndoWritesRow(t *testing.T) {
	pool := setupPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cell := NewCell(ctx, pool, "history")
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), "DELETE FROM state WHERE key = $1", "history") })
	cell.Set("v1")

	h := delta.NewHistory[string](ctx, cell, delta.WithFlush(delta.FlushSync))
	defer h.Stop()

	cell.Set("v2")
	if err := h.Tick(); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}

	var value string
	if err := pool.QueryRow(ctx, "SELECT value FROM state WHERE key = $1", "history").Scan(&value); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if value != "v1" {
		t.Errorf("expected row restored to v1, got %q", value)
	}
}
