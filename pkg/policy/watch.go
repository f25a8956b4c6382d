package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to configuration and policy files.
type Watcher struct {
	logger   zerolog.Logger
	debounce time.Duration
	loader   *Loader
}

// NewWatcher creates a watcher. Changed policy files are dropped from
// loader's cache when loader is set.
func NewWatcher(logger zerolog.Logger, loader *Loader) *Watcher {
	return &Watcher{
		logger:   logger.With().Str("component", "policy-watcher").Logger(),
		debounce: DefaultDebounce,
		loader:   loader,
	}
}

// Watch blocks until ctx is done and calls onChange after writes to any of
// paths settle. Directories are watched recursively.
func (w *Watcher) Watch(ctx context.Context, paths []string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		if err := addPath(watcher, path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	w.logger.Info().Int("paths", len(paths)).Msg("Watching for changes")

	var timer *time.Timer
	changed := make(chan string, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("File changed")
			if w.loader != nil && IsPolicyFile(event.Name) {
				w.loader.Forget(event.Name)
			}

			if timer != nil {
				timer.Stop()
			}
			name := event.Name
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case changed <- name:
				default:
				}
			})

		case name := <-changed:
			onChange(name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

func addPath(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}
