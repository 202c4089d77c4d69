package delta

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// FileCell is a Cell persisted to a file through a Codec. Pair it with a
// FileScheduler to track edits made outside the process.
//
// Get decodes the file on every call. A missing or empty file, or one that
// fails to decode, reads as the last value decoded or set; decode and write
// failures are reported by Err.
type FileCell[V any] struct {
	path  string
	codec Codec

	mu   sync.Mutex
	last V
	err  error
}

// NewFileCell creates a FileCell for path that reads as initial until the
// file holds a decodable value. A nil codec is chosen by CodecFor; an
// unrecognized extension panics with ErrInvalidConfig.
func NewFileCell[V any](path string, initial V, codec Codec) *FileCell[V] {
	if codec == nil {
		c, err := CodecFor(path)
		if err != nil {
			panic(fmt.Errorf("%w: %w", ErrInvalidConfig, err))
		}
		codec = c
	}
	return &FileCell[V]{path: path, codec: codec, last: initial}
}

// Path returns the backing file path.
func (c *FileCell[V]) Path() string {
	return c.path
}

// Get returns the file's decoded value.
func (c *FileCell[V]) Get() V {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.err = nil
		return c.last
	case err != nil:
		c.err = fmt.Errorf("read %s: %w", c.path, err)
		return c.last
	case len(data) == 0:
		return c.last
	}

	var v V
	if err := c.codec.Unmarshal(data, &v); err != nil {
		c.err = fmt.Errorf("decode %s: %w", c.path, err)
		return c.last
	}
	c.last, c.err = v, nil
	return v
}

// Set encodes v and writes it to the file in place.
func (c *FileCell[V]) Set(v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.codec.Marshal(v)
	if err != nil {
		c.err = fmt.Errorf("encode %s: %w", c.path, err)
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		c.err = fmt.Errorf("write %s: %w", c.path, err)
		return
	}
	c.last, c.err = v, nil
}

// Err returns the error from the most recent read or write, if it failed.
func (c *FileCell[V]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

var _ Cell[int] = (*FileCell[int])(nil)
