package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a single board-export YAML file on disk and invokes a
// callback whenever it is written, so a long-running serve process can
// pick up edits to the file the board was imported from without a
// restart. It is independent of store.Adapter.Watch, which detects
// drift in already-imported hex rows; Watcher detects drift in the
// source file itself, before any re-import has happened.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *slog.Logger
	done    chan struct{}
}

// WatchFile starts watching path, invoking onChange (with path) after any
// Write or Create event settles. Events are delivered once per
// notification; debouncing rapid successive writes from an editor's
// save-then-rename dance is the caller's responsibility.
func WatchFile(path string, log *slog.Logger, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, log: log, done: make(chan struct{})}
	go w.loop(path, onChange)
	return w, nil
}

func (w *Watcher) loop(path string, onChange func(path string)) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				onChange(path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Error("config file watch error", "path", path, "error", err)
			}
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
