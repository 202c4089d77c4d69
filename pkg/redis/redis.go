// Package redis provides delta.Scheduler and delta.Cell implementations for a
// single Redis key using keyspace notifications.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/zoobzio/delta"
)

var (
	_ delta.Scheduler    = (*Scheduler)(nil)
	_ delta.Cell[string] = (*Cell)(nil)
)

// Scheduler triggers whenever a Redis key is written, deleted, or expires.
// Requires Redis to have keyspace notifications enabled:
//
//	CONFIG SET notify-keyspace-events KEA
//
// Or in redis.conf:
//
//	notify-keyspace-events KEA
type Scheduler struct {
	client *redis.Client
	key    string
}

// NewScheduler creates a Scheduler for the given Redis key.
func NewScheduler(client *redis.Client, key string) *Scheduler {
	return &Scheduler{
		client: client,
		key:    key,
	}
}

// Schedule subscribes to keyspace notifications for the key and returns a
// channel that emits a trigger for every mutating event.
func (s *Scheduler) Schedule(ctx context.Context) (<-chan struct{}, error) {
	channel := fmt.Sprintf("__keyspace@%d__:%s", s.client.Options().DB, s.key)
	pubsub := s.client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to keyspace notifications: %w", err)
	}

	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !mutating(msg.Payload) {
					continue
				}
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				default:
					// A trigger is already pending; the next round reads the latest value.
				}
			}
		}
	}()

	return out, nil
}

func mutating(event string) bool {
	switch event {
	case "set", "setex", "psetex", "setnx", "setrange", "append", "incrby", "decrby", "del", "expired", "evicted":
		return true
	}
	return false
}

// Cell reads and writes a Redis string key. A missing key reads as the empty
// string. Failed reads return the last value seen and are reported by Err.
type Cell struct {
	ctx    context.Context
	client *redis.Client
	key    string

	mu   sync.Mutex
	last string
	err  error
}

// NewCell creates a Cell for the given Redis key. ctx bounds every command
// the cell issues.
func NewCell(ctx context.Context, client *redis.Client, key string) *Cell {
	return &Cell{
		ctx:    ctx,
		client: client,
		key:    key,
	}
}

// Get returns the current value of the key.
func (c *Cell) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	val, err := c.client.Get(c.ctx, c.key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		c.last, c.err = "", nil
	case err != nil:
		c.err = fmt.Errorf("get %s: %w", c.key, err)
	default:
		c.last, c.err = val, nil
	}
	return c.last
}

// Set writes v to the key without an expiry.
func (c *Cell) Set(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.Set(c.ctx, c.key, v, 0).Err(); err != nil {
		c.err = fmt.Errorf("set %s: %w", c.key, err)
		return
	}
	c.last, c.err = v, nil
}

// Err returns the error from the most recent command, if it failed.
func (c *Cell) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
