package snapshot

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragcore/internal/logger"
)

// Watcher observes a snapshot directory and reports when a new snapshot
// is committed. Long-running processes use it to pick up snapshots
// written by another process (a CLI ingest while the MCP server runs).
type Watcher struct {
	fsw  *fsnotify.Watcher
	dir  string
	done chan struct{}
}

// WatchCurrent starts watching dir and invokes onCommit with the new
// snapshot ID every time the CURRENT pointer changes. The callback runs
// on the watcher goroutine; it must not block.
func WatchCurrent(dir string, onCommit func(id string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:  fsw,
		dir:  dir,
		done: make(chan struct{}),
	}
	go w.run(onCommit)
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run(onCommit func(id string)) {
	defer close(w.done)

	var lastID string
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// The pointer is swapped in by rename, so the commit shows
			// up as Create (or Write on filesystems without rename
			// events).
			if filepath.Base(event.Name) != currentFile {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}

			data, err := os.ReadFile(filepath.Join(w.dir, currentFile))
			if err != nil {
				logger.Warn("Snapshot watcher: reading current pointer: %v", err)
				continue
			}
			id := strings.TrimSpace(string(data))
			if id == "" || id == lastID {
				continue
			}
			lastID = id

			logger.Debug("Snapshot watcher: new snapshot %s committed", id)
			onCommit(id)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Snapshot watcher: %v", err)
		}
	}
}
