package delta

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/clockz"
)

// validate is the shared validator instance.
var validate = validator.New()

// config holds configuration options for watchers.
// Fields are exported so the validator can see them.
type config struct {
	Immediate bool
	Deep      bool
	Once      bool
	Clone     any
	Codec     Codec        `validate:"required"`
	Clock     clockz.Clock `validate:"required"`

	// History only.
	Flush    Flush `validate:"oneof=pre post sync"`
	Capacity int   `validate:"min=0"`
	Dump     any
	Parse    any
}

// Option configures a watcher or a history store. Options that do not apply
// to the component being built are ignored.
type Option func(*config)

// Immediate delivers the current value once at construction, with the zero
// value as previous.
func Immediate() Option {
	return func(c *config) {
		c.Immediate = true
	}
}

// Deep snapshots values through a clone and compares them structurally.
func Deep() Option {
	return func(c *config) {
		c.Deep = true
	}
}

// Once limits Whenever to its first truthy delivery.
func Once() Option {
	return func(c *config) {
		c.Once = true
	}
}

// WithClone sets the clone used for deep snapshots. The function's type
// must match the watched value type or construction panics.
func WithClone[V any](fn func(V) (V, error)) Option {
	return func(c *config) {
		c.Clone = CloneFunc[V](fn)
	}
}

// WithCodec sets the codec used by the default deep clone.
// Default: JSONCodec.
func WithCodec(codec Codec) Option {
	return func(c *config) {
		c.Codec = codec
	}
}

// WithClock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.Clock = clock
	}
}

// WithFlush sets when a history store commits detected changes.
// Default: FlushPre.
func WithFlush(f Flush) Option {
	return func(c *config) {
		c.Flush = f
	}
}

// WithCapacity bounds the number of history entries. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(c *config) {
		c.Capacity = n
	}
}

// WithDump sets how a history snapshot is serialized before it is restored.
func WithDump[V any](fn func(V) ([]byte, error)) Option {
	return func(c *config) {
		c.Dump = fn
	}
}

// WithParse sets how a serialized history snapshot is turned back into a value.
func WithParse[V any](fn func([]byte) (V, error)) Option {
	return func(c *config) {
		c.Parse = fn
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		Codec: JSONCodec{},
		Clock: clockz.RealClock,
		Flush: FlushPre,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	mustValidate(cfg)
	return cfg
}

// cloneFor resolves the configured clone for V.
func cloneFor[V any](cfg *config) CloneFunc[V] {
	if cfg.Clone == nil {
		return CodecClone[V](cfg.Codec)
	}
	fn, ok := cfg.Clone.(CloneFunc[V])
	if !ok {
		panic(fmt.Errorf("%w: clone is %T, want %T", ErrInvalidConfig, cfg.Clone, fn))
	}
	return fn
}

// mustValidate panics with ErrInvalidConfig when v fails its struct tags.
func mustValidate(v any) {
	if err := validate.Struct(v); err != nil {
		panic(fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
}

// invalid panics with ErrInvalidConfig and the given reason.
func invalid(format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
}
