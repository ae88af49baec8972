package policy

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// Watch reloads the policy file at path whenever it is written or replaced, and calls onChange with the new content.
// Files failing to load are logged and skipped. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, l logr.Logger, onChange func(*Policy)) error {
	watcher, e := fsnotify.NewWatcher()
	if e != nil {
		return fmt.Errorf("create policy watcher: %w", e)
	}

	// editors replace files by renaming, the directory is watched to survive that
	abs, e := filepath.Abs(path)
	if e != nil {
		watcher.Close()
		return e
	}
	if e := watcher.Add(filepath.Dir(abs)); e != nil {
		watcher.Close()
		return fmt.Errorf("watch policy %s: %w", path, e)
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				l.V(4).Info("policy changed", "path", path, "op", event.Op.String())
				p, e := Load(abs)
				if e != nil {
					l.Error(e, "reload policy failed", "path", path)
					continue
				}
				onChange(p)

			case e, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.Error(e, "policy watcher error", "path", path)
			}
		}
	}()

	return nil
}
