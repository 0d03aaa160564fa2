package main

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long the dataset must go without events before a change is
// reported. Saving a spreadsheet usually produces a burst of events.
const settle = 500 * time.Millisecond

// datasetWatcher reports changes to a single file. It watches the file's
// directory rather than the file itself because many editors save by
// replacing the file.
type datasetWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	changes chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

func newDatasetWatcher(path string) (*datasetWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &datasetWatcher{
		watcher: watcher,
		path:    abs,
		changes: make(chan struct{}, 1),
	}
	go w.processEvents()

	return w, nil
}

func (w *datasetWatcher) isDatasetEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *datasetWatcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.isDatasetEvent(event) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watch error: %v", err)
		}
	}
}

func (w *datasetWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(settle, func() {
		// A change is already pending if the channel is full.
		select {
		case w.changes <- struct{}{}:
		default:
		}
	})
}

// Changes receives a value after each settled burst of changes.
func (w *datasetWatcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *datasetWatcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}
