package manifest

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
)

// Watcher observes a manifest directory and invokes a callback when any
// manifest file changes. Events are debounced so one save producing several
// filesystem events triggers a single revalidation.
type Watcher struct {
	dir      string
	debounce time.Duration
}

// NewWatcher creates a watcher for the given manifest directory.
func NewWatcher(dir string) *Watcher {
	return &Watcher{dir: dir, debounce: 250 * time.Millisecond}
}

// Run blocks until ctx is cancelled, calling onChange after each debounced
// burst of manifest file events.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logging.Watch("watching %s", w.dir)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isManifestFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.WatchDebug("event: %s %s", event.Op, event.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)

		case <-fire:
			onChange()
		}
	}
}
