package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store whenever its file changes on disk.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	handler func(error)
	done    chan struct{}
}

// Watch starts watching the settings file. handler runs after every reload
// with the reload error, if any. The directory is watched rather than the file
// so that editors replacing the file are picked up.
func (s *Store) Watch(handler func(error)) (*Watcher, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(s.path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch settings: %w", err)
	}

	w := &Watcher{
		store:   s,
		watcher: fsw,
		handler: handler,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	name := filepath.Clean(w.store.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			err := w.store.Reload()
			if err != nil {
				slog.Warn("failed to reload settings", "path", name, "error", err)
			}
			if w.handler != nil {
				w.handler(err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("settings watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Stop stops watching. It must be called once.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}
