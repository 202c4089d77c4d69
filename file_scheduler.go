package delta

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// FileScheduler triggers whenever a file is written or created.
type FileScheduler struct {
	path string
}

// NewFileScheduler creates a FileScheduler for the given file path.
func NewFileScheduler(path string) *FileScheduler {
	return &FileScheduler{path: path}
}

// Schedule begins watching the file and returns a channel that emits a
// trigger on every write or create event.
func (s *FileScheduler) Schedule(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch file %s: %w", s.path, err)
	}

	out := make(chan struct{})

	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Keep watching.
			}
		}
	}()

	return out, nil
}
