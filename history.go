package delta

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Flush selects when a History commits a detected change.
type Flush string

const (
	// FlushPre defers the commit to a zero-delay timer, coalescing changes
	// detected before it fires (default).
	FlushPre Flush = "pre"

	// FlushPost is accepted for compatibility and behaves exactly like FlushPre.
	FlushPost Flush = "post"

	// FlushSync commits as soon as Tick detects a change.
	FlushSync Flush = "sync"
)

// Entry is one committed snapshot.
type Entry[V any] struct {
	ID        ulid.ULID
	Snapshot  V
	Timestamp int64 // unix milliseconds
}

// History records snapshots of a Cell and restores them on undo and redo.
//
// History() is most-recent-first and its head is always the latest commit.
// Undo moves the head onto a redo stack and restores the entry below it;
// Redo moves it back. A new commit discards the redo stack. With a capacity,
// committing past it evicts the oldest entry.
//
// Changes to the cell are picked up by Tick, which commits according to the
// flush mode. Commit can also be called directly.
type History[V any] struct {
	ctx   context.Context
	cell  Cell[V]
	flush Flush
	limit int
	deep  bool
	clock clockz.Clock
	clone CloneFunc[V]
	dump  func(V) ([]byte, error)
	parse func([]byte) (V, error)

	watcher *Watcher[V]

	mu       sync.Mutex
	past     []Entry[V]
	future   []Entry[V]
	paused   bool
	batching bool
	stopped  bool
	entropy  *ulid.MonotonicEntropy

	// pending deferred commit
	gen    uint64
	timer  clockz.Timer
	cancel context.CancelFunc

	release func() bool

	lastError atomic.Pointer[error]
}

// NewHistory creates a History over cell and commits its current value as
// the first entry. Canceling ctx stops the history, dropping any pending
// deferred commit. Configuration mistakes panic with ErrInvalidConfig.
//
// Options: Deep, WithFlush, WithCapacity, WithClone, WithDump, WithParse,
// WithCodec, WithClock.
//
// Example:
//
//	text := delta.NewRef("")
//	h := delta.NewHistory(ctx, text, delta.WithFlush(delta.FlushSync), delta.WithCapacity(50))
//	text.Set("hello")
//	_ = h.Tick()  // commits "hello"
//	_ = h.Undo()  // text is "" again
func NewHistory[V any](ctx context.Context, cell Cell[V], opts ...Option) *History[V] {
	if cell == nil {
		invalid("history requires a cell")
	}
	cfg := newConfig(opts)

	h := &History[V]{
		ctx:     ctx,
		cell:    cell,
		flush:   cfg.Flush,
		limit:   cfg.Capacity,
		deep:    cfg.Deep,
		clock:   cfg.Clock,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	if cfg.Deep {
		h.clone = cloneFor[V](cfg)
	}
	h.dump, h.parse = serializersFor[V](cfg)

	initial, err := Snapshot(Getter(cell.Get), h.deep, h.clone)
	if err != nil {
		panic(fmt.Errorf("%w: initial snapshot: %w", ErrInvalidConfig, err))
	}
	h.push(initial)

	h.watcher = newWatcher(ctx, "history", Getter(cell.Get), h.changed, cfg)
	h.watcher.start(false)
	release := context.AfterFunc(ctx, h.Stop)
	h.mu.Lock()
	h.release = release
	h.mu.Unlock()
	return h
}

// serializersFor resolves dump and parse. Without Deep or custom functions,
// both are nil and snapshots are restored as-is.
func serializersFor[V any](cfg *config) (func(V) ([]byte, error), func([]byte) (V, error)) {
	var (
		dump  func(V) ([]byte, error)
		parse func([]byte) (V, error)
	)
	if cfg.Dump != nil {
		fn, ok := cfg.Dump.(func(V) ([]byte, error))
		if !ok {
			invalid("dump is %T, want %T", cfg.Dump, fn)
		}
		dump = fn
	}
	if cfg.Parse != nil {
		fn, ok := cfg.Parse.(func([]byte) (V, error))
		if !ok {
			invalid("parse is %T, want %T", cfg.Parse, fn)
		}
		parse = fn
	}
	if dump == nil && parse == nil && !cfg.Deep {
		return nil, nil
	}

	codec := cfg.Codec
	if dump == nil {
		dump = func(v V) ([]byte, error) { return codec.Marshal(v) }
	}
	if parse == nil {
		parse = func(data []byte) (V, error) {
			var v V
			err := codec.Unmarshal(data, &v)
			return v, err
		}
	}
	return dump, parse
}

// changed receives changes detected by Tick.
func (h *History[V]) changed(curr, _ V, _ func(func())) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped || h.paused || h.batching {
		return
	}
	switch h.flush {
	case FlushSync:
		h.pushLocked(curr)
	default:
		if h.timer == nil {
			h.scheduleLocked()
		}
	}
}

// scheduleLocked arms a zero-delay deferred commit.
func (h *History[V]) scheduleLocked() {
	h.gen++
	gen := h.gen
	timer := h.clock.NewTimer(0)
	ctx, cancel := context.WithCancel(h.ctx)
	h.timer, h.cancel = timer, cancel

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-timer.C():
		}

		h.mu.Lock()
		if gen != h.gen || h.stopped {
			h.mu.Unlock()
			return
		}
		h.timer, h.cancel = nil, nil
		h.mu.Unlock()

		if err := h.Commit(); err != nil {
			h.setError(err)
		}
	}()
}

// cancelPendingLocked drops a deferred commit that has not fired yet.
func (h *History[V]) cancelPendingLocked() {
	h.gen++
	if h.timer != nil {
		h.timer.Stop()
		h.cancel()
		h.timer, h.cancel = nil, nil
	}
}

// Tick checks the cell for changes and commits them per the flush mode.
func (h *History[V]) Tick() error {
	return h.watcher.Tick()
}

// Commit snapshots the cell and pushes it as the new head.
func (h *History[V]) Commit() error {
	v, err := Snapshot(Getter(h.cell.Get), h.deep, h.clone)
	if err != nil {
		h.setError(err)
		return err
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrStopped
	}
	h.cancelPendingLocked()
	h.pushLocked(v)
	h.mu.Unlock()

	return h.watcher.resync()
}

func (h *History[V]) push(v V) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushLocked(v)
}

func (h *History[V]) pushLocked(v V) {
	now := h.clock.Now()
	entry := Entry[V]{
		ID:        ulid.MustNew(ulid.Timestamp(now), h.entropy),
		Snapshot:  v,
		Timestamp: now.UnixMilli(),
	}
	h.past = h.prependLocked(entry)
	h.future = nil

	capitan.Emit(h.ctx, HistoryCommitted,
		KeyEntry.Field(entry.ID.String()),
		KeyLength.Field(len(h.past)),
		KeyFlush.Field(string(h.flush)),
	)
}

// prependLocked puts entry on top of past, evicting beyond capacity.
func (h *History[V]) prependLocked(entry Entry[V]) []Entry[V] {
	past := make([]Entry[V], 0, len(h.past)+1)
	past = append(past, entry)
	past = append(past, h.past...)
	if h.limit > 0 && len(past) > h.limit {
		past = past[:h.limit]
	}
	return past
}

// restore turns a snapshot back into a value for the cell via parse(dump(v)).
func (h *History[V]) restore(v V) (V, error) {
	if h.dump == nil {
		return v, nil
	}
	data, err := h.dump(v)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("%w: dump: %w", ErrSnapshot, err)
	}
	out, err := h.parse(data)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("%w: parse: %w", ErrSnapshot, err)
	}
	return out, nil
}

// apply writes v to the cell without it being committed as a change.
func (h *History[V]) apply(v V) error {
	h.cell.Set(v)
	return h.watcher.resync()
}

// Undo restores the entry below the head and moves the head onto the redo
// stack. It returns ErrNothingToUndo when the head is the only entry.
func (h *History[V]) Undo() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrStopped
	}
	if len(h.past) < 2 {
		h.mu.Unlock()
		return ErrNothingToUndo
	}
	head, target := h.past[0], h.past[1]
	v, err := h.restore(target.Snapshot)
	if err != nil {
		h.mu.Unlock()
		h.setError(err)
		return err
	}
	h.cancelPendingLocked()
	h.past = append([]Entry[V](nil), h.past[1:]...)
	h.future = append([]Entry[V]{head}, h.future...)
	length := len(h.past)
	h.mu.Unlock()

	capitan.Emit(h.ctx, HistoryUndone,
		KeyEntry.Field(target.ID.String()),
		KeyLength.Field(length),
	)
	return h.apply(v)
}

// Redo restores the most recently undone entry and makes it the head again.
// It returns ErrNothingToRedo when nothing has been undone since the last
// commit.
func (h *History[V]) Redo() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrStopped
	}
	if len(h.future) == 0 {
		h.mu.Unlock()
		return ErrNothingToRedo
	}
	entry := h.future[0]
	v, err := h.restore(entry.Snapshot)
	if err != nil {
		h.mu.Unlock()
		h.setError(err)
		return err
	}
	h.cancelPendingLocked()
	h.future = append([]Entry[V](nil), h.future[1:]...)
	h.past = h.prependLocked(entry)
	length := len(h.past)
	h.mu.Unlock()

	capitan.Emit(h.ctx, HistoryRedone,
		KeyEntry.Field(entry.ID.String()),
		KeyLength.Field(length),
	)
	return h.apply(v)
}

// Reset restores the cell to the head entry without committing.
func (h *History[V]) Reset() error {
	h.mu.Lock()
	head := h.past[0]
	h.cancelPendingLocked()
	h.mu.Unlock()

	v, err := h.restore(head.Snapshot)
	if err != nil {
		h.setError(err)
		return err
	}
	return h.apply(v)
}

// Clear drops every entry except the head, and the redo stack.
func (h *History[V]) Clear() {
	h.mu.Lock()
	h.past = h.past[:1:1]
	h.future = nil
	h.mu.Unlock()

	capitan.Emit(h.ctx, HistoryCleared,
		KeyLength.Field(1),
	)
}

// Batch runs fn without tracking the changes it makes, then commits once.
// Calling cancel inside fn skips the commit; the changes stay in the cell
// but are not recorded.
func (h *History[V]) Batch(fn func(cancel func())) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrStopped
	}
	h.batching = true
	h.mu.Unlock()

	canceled := false
	func() {
		defer func() {
			h.mu.Lock()
			h.batching = false
			h.mu.Unlock()
		}()
		fn(func() { canceled = true })
	}()

	if canceled {
		return h.watcher.resync()
	}
	return h.Commit()
}

// Pause stops committing changes picked up by Tick.
func (h *History[V]) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
	h.cancelPendingLocked()
}

// Resume starts committing changes again. Changes made while paused are
// committed now when commit is true and forgotten otherwise.
func (h *History[V]) Resume(commit bool) error {
	h.mu.Lock()
	h.paused = false
	h.mu.Unlock()

	if commit {
		return h.Commit()
	}
	return h.watcher.resync()
}

// IsTracking reports whether Tick commits changes.
func (h *History[V]) IsTracking() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.paused && !h.stopped
}

// Stop cancels any pending deferred commit and stops tracking. Undo, Redo,
// Commit and Batch return ErrStopped afterwards.
func (h *History[V]) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.cancelPendingLocked()
	release := h.release
	h.mu.Unlock()

	if release != nil {
		release()
	}
	h.watcher.Stop()
}

// Value returns the cell's current value.
func (h *History[V]) Value() V {
	return h.cell.Get()
}

// History returns the committed entries, most recent first.
func (h *History[V]) History() []Entry[V] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry[V](nil), h.past...)
}

// Undone returns the redo stack, most recently undone first.
func (h *History[V]) Undone() []Entry[V] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry[V](nil), h.future...)
}

// Last returns the head entry.
func (h *History[V]) Last() Entry[V] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.past[0]
}

// CanUndo reports whether Undo would succeed.
func (h *History[V]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 1
}

// CanRedo reports whether Redo would succeed.
func (h *History[V]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// LastError returns the last error from a deferred commit or a restore, or nil.
func (h *History[V]) LastError() error {
	ptr := h.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

func (h *History[V]) setError(err error) {
	e := err
	h.lastError.Store(&e)
}
