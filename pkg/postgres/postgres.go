// Package postgres provides delta.Scheduler and delta.Cell implementations
// for a key/value table using LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zoobzio/delta"
)

var (
	_ delta.Scheduler    = (*Scheduler)(nil)
	_ delta.Cell[string] = (*Cell)(nil)
)

// Scheduler triggers when a notification naming its key arrives on a
// PostgreSQL channel. Requires a trigger on the table that sends the row's
// key as the payload.
//
// Example trigger setup:
//
//	CREATE OR REPLACE FUNCTION notify_state_change() RETURNS trigger AS $$
//	BEGIN
//	    PERFORM pg_notify('state_changed', NEW.key);
//	    RETURN NEW;
//	END;
//	$$ LANGUAGE plpgsql;
//
//	CREATE TRIGGER state_change_trigger
//	    AFTER INSERT OR UPDATE ON state
//	    FOR EACH ROW EXECUTE FUNCTION notify_state_change();
type Scheduler struct {
	pool    *pgxpool.Pool
	channel string
	key     string
}

// NewScheduler creates a Scheduler for the given notification channel and key.
// The channel should match the channel used in pg_notify.
func NewScheduler(pool *pgxpool.Pool, channel, key string) *Scheduler {
	return &Scheduler{
		pool:    pool,
		channel: channel,
		key:     key,
	}
}

// Schedule holds a pooled connection listening on the channel and returns a
// trigger channel that emits for every notification about the key.
func (s *Scheduler) Schedule(ctx context.Context) (<-chan struct{}, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on channel %s: %w", s.channel, err)
	}

	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if notification.Payload != s.key {
				continue
			}

			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			default:
			}
		}
	}()

	return out, nil
}

// Option configures a Cell.
type Option func(*Cell)

// WithTable sets the table name holding key/value rows.
// Defaults to "state".
func WithTable(table string) Option {
	return func(c *Cell) {
		c.table = table
	}
}

// Cell reads and writes the value column of one row in a key/value table.
// A missing row reads as the empty string. Failed queries return the last
// value seen and are reported by Err.
type Cell struct {
	ctx   context.Context
	pool  *pgxpool.Pool
	key   string
	table string

	mu   sync.Mutex
	last string
	err  error
}

// NewCell creates a Cell for the row identified by key. ctx bounds every
// query the cell issues.
func NewCell(ctx context.Context, pool *pgxpool.Pool, key string, opts ...Option) *Cell {
	c := &Cell{
		ctx:   ctx,
		pool:  pool,
		key:   key,
		table: "state",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the row's current value.
func (c *Cell) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var value string
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", pgx.Identifier{c.table}.Sanitize())
	err := c.pool.QueryRow(c.ctx, query, c.key).Scan(&value)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		c.last, c.err = "", nil
	case err != nil:
		c.err = fmt.Errorf("select %s: %w", c.key, err)
	default:
		c.last, c.err = value, nil
	}
	return c.last
}

// Set upserts the row with v.
func (c *Cell) Set(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := fmt.Sprintf(
		"INSERT INTO %s (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value",
		pgx.Identifier{c.table}.Sanitize(),
	)
	if _, err := c.pool.Exec(c.ctx, query, c.key, v); err != nil {
		c.err = fmt.Errorf("upsert %s: %w", c.key, err)
		return
	}
	c.last, c.err = v, nil
}

// Err returns the error from the most recent query, if it failed.
func (c *Cell) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
