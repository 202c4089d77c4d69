package delta

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// Action is a store update: either a replacement value or a function of the
// current value. The zero Action is nullish and is ignored by Dispatch.
type Action[S any] struct {
	value  S
	update func(S) S
	set    bool
}

// Set returns an Action replacing the store value with v.
func Set[S any](v S) Action[S] {
	return Action[S]{value: v, set: true}
}

// Update returns an Action replacing the store value with fn(current).
func Update[S any](fn func(S) S) Action[S] {
	return Action[S]{update: fn}
}

func (a Action[S]) nullish() bool {
	return !a.set && a.update == nil
}

// Store is one shared value with any number of subscribers. Dispatch updates
// the value and notifies every subscriber registered at the time of the call
// before returning.
type Store[S any] struct {
	ctx   context.Context
	deep  bool
	clone CloneFunc[S]

	mu      sync.RWMutex
	value   S
	version uint64
	subs    map[uuid.UUID]func(S)
	order   []uuid.UUID

	lastError atomic.Pointer[error]
}

// NewStore creates a Store holding initial. With Deep, initial and every
// dispatched value are cloned before they are stored so later mutation by the
// caller does not leak into the store. A clone failure on initial panics with
// ErrInvalidConfig.
//
// Example:
//
//	counter := delta.NewStore(ctx, 0)
//	a, b := counter.Bind(), counter.Bind()
//	a.Dispatch(delta.Update(func(n int) int { return n + 1 }))
//	_ = b.Value() // 1
func NewStore[S any](ctx context.Context, initial S, opts ...Option) *Store[S] {
	cfg := newConfig(opts)
	s := &Store[S]{
		ctx:   ctx,
		deep:  cfg.Deep,
		value: initial,
		subs:  make(map[uuid.UUID]func(S)),
	}
	if cfg.Deep {
		s.clone = cloneFor[S](cfg)
		v, err := s.clone(initial)
		if err != nil {
			panic(fmt.Errorf("%w: initial value: %w", ErrInvalidConfig, err))
		}
		s.value = v
	}
	return s
}

// Get returns the current value.
func (s *Store[S]) Get() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the current value and notifies subscribers. It is Dispatch of
// Set(v) without a binding, so a Store can back a History as its Cell. A
// failed clone leaves the value unchanged and is reported by LastError.
func (s *Store[S]) Set(v S) {
	_ = s.dispatch(Set(v), "")
}

// LastError returns the error from the most recent dispatch that failed, or
// nil. A successful dispatch clears it.
func (s *Store[S]) LastError() error {
	ptr := s.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// Dispatch applies action and notifies subscribers. Nullish actions and
// actions resolving to a nil value are ignored. The only error is a failed
// clone under Deep.
//
// Update functions run with the store locked and must not call back into it.
// Subscribers run unlocked and may dispatch. A nested dispatch notifies
// everyone with the newer value, and the outer fan-out then stops, so every
// subscriber ends on the latest value.
func (s *Store[S]) Dispatch(action Action[S]) error {
	return s.dispatch(action, "")
}

// Subscribe registers fn to receive every dispatched value and returns a
// function that removes it.
func (s *Store[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	if fn == nil {
		invalid("store subscriber must not be nil")
	}
	id := uuid.New()
	s.subscribe(id, fn)
	return func() { s.unsubscribe(id) }
}

// Subscribers returns the number of registered subscribers.
func (s *Store[S]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Bind returns a new Binding sharing this store's value.
func (s *Store[S]) Bind() *Binding[S] {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &Binding[S]{
		ID:    uuid.New(),
		store: s,
		view:  NewRef(s.value),
	}
	s.subs[b.ID] = b.receive
	s.order = append(s.order, b.ID)
	return b
}

func (s *Store[S]) subscribe(id uuid.UUID, fn func(S)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[id] = fn
	s.order = append(s.order, id)
}

func (s *Store[S]) unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return
	}
	delete(s.subs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store[S]) dispatch(action Action[S], binding string) error {
	if action.nullish() {
		s.ignored("nullish action", binding)
		return nil
	}

	s.mu.Lock()
	next := action.value
	if action.update != nil {
		next = action.update(s.value)
	}
	if isNil(next) {
		s.mu.Unlock()
		s.ignored("nil value", binding)
		return nil
	}
	if s.deep {
		cloned, err := s.clone(next)
		if err != nil {
			s.mu.Unlock()
			s.failed(err, binding)
			return err
		}
		next = cloned
	}
	s.value = next
	s.version++
	version := s.version
	subs := make([]func(S), 0, len(s.order))
	for _, id := range s.order {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()
	s.lastError.Store(nil)

	notified := 0
	for _, fn := range subs {
		if s.superseded(version) {
			break
		}
		fn(next)
		notified++
	}

	capitan.Emit(s.ctx, StoreDispatched,
		KeySubscribers.Field(notified),
		KeyBinding.Field(binding),
	)
	return nil
}

// superseded reports whether a later dispatch has replaced the value sent
// by the dispatch numbered version.
func (s *Store[S]) superseded(version uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version != version
}

func (s *Store[S]) failed(err error, binding string) {
	e := err
	s.lastError.Store(&e)
	capitan.Emit(s.ctx, StoreDispatchIgnored,
		KeyReason.Field("clone failed"),
		KeyError.Field(err.Error()),
		KeyBinding.Field(binding),
	)
}

func (s *Store[S]) ignored(reason, binding string) {
	capitan.Emit(s.ctx, StoreDispatchIgnored,
		KeyReason.Field(reason),
		KeyBinding.Field(binding),
	)
}

// Binding is one subscriber's view of a Store. Value is refreshed on every
// dispatch until Close.
type Binding[S any] struct {
	ID uuid.UUID

	store *Store[S]
	view  *Ref[S]
	once  sync.Once
}

// Value returns the binding's view of the store value.
func (b *Binding[S]) Value() S {
	return b.view.Get()
}

// Dispatch applies action to the shared store.
func (b *Binding[S]) Dispatch(action Action[S]) error {
	return b.store.dispatch(action, b.ID.String())
}

// Close stops the binding from receiving updates. Its Value keeps the last
// value it saw.
func (b *Binding[S]) Close() {
	b.once.Do(func() { b.store.unsubscribe(b.ID) })
}

func (b *Binding[S]) receive(v S) {
	b.view.Set(v)
}

var _ Cell[int] = (*Store[int])(nil)
