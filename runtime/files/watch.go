package files

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch blocks until ctx is done, invalidating cached files when they change
// on disk and calling onChange with each changed path. onChange runs on the
// watching goroutine; files it loads are watched from then on.
//
// Directories are watched rather than files, since editors often replace a
// file instead of writing it in place.
func (l *Loader) Watch(ctx context.Context, onChange func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]bool) // directories
	known := make(map[string]bool)   // files ever loaded
	watchLoaded := func() error {
		for _, p := range l.Paths() {
			known[p] = true
			dir := filepath.Dir(p)
			if watched[dir] {
				continue
			}
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			watched[dir] = true
			l.logger.Debug("watching directory", "dir", dir)
		}
		return nil
	}
	if err := watchLoaded(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			key, err := Key(event.Name)
			if err != nil || !known[key] {
				continue
			}
			l.Invalidate(key)
			l.logger.Info("input changed", "path", event.Name, "op", event.Op.String())
			onChange(key)
			if err := watchLoaded(); err != nil {
				return err
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("file watcher error", "error", err)
		}
	}
}
