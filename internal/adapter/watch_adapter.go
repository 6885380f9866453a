package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchAdapter reports changes below a set of OS directories.
type WatchAdapter interface {
	// Watch blocks until ctx is done, calling onChange with the changed
	// paths once the tree has been quiet for debounce.
	Watch(ctx context.Context, dirs []string, debounce time.Duration, onChange func(changed []string)) error
}

// LocalWatchAdapter implements WatchAdapter with fsnotify.
type LocalWatchAdapter struct{}

// NewLocalWatchAdapter constructs a LocalWatchAdapter.
func NewLocalWatchAdapter() *LocalWatchAdapter {
	return &LocalWatchAdapter{}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return w.Add(path)
		}

		return nil
	})
}

// Watch implements WatchAdapter.
func (a *LocalWatchAdapter) Watch(ctx context.Context, dirs []string, debounce time.Duration, onChange func(changed []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	for _, dir := range dirs {
		if err := addTree(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	var pending []string

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op == fsnotify.Chmod {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						slog.Warn("Failed to watch new directory", "dir", event.Name, "error", err)
					}
				}
			}

			if !slices.Contains(pending, event.Name) {
				pending = append(pending, event.Name)
			}

			timer.Reset(debounce)
		case <-timer.C:
			changed := pending
			pending = nil

			onChange(changed)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			slog.Error("Watcher error", "error", err)
		}
	}
}
