/*
Package watch observes a source tree and emits debounced batches of
changed file paths. The caller decides which files matter via an accept
filter and re-imports whatever a batch names; deletions are not emitted,
since cooked containers only ever grow.
*/
package watch

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/kiln/pipeline/core"
)

/**
 * @brief Watches a directory tree recursively and batches change events.
 */
type Watcher struct {
	fsnotify *fsnotify.Watcher
	accept   func(path string) bool
	debounce time.Duration

	batches chan []string
	done    chan struct{}
	once    sync.Once
}

/**
 * @brief Starts watching root and every directory below it. Paths passing
 * the accept filter are collected and emitted as one batch once no new
 * event has arrived for the debounce interval.
 */
func New(root string, debounce time.Duration, accept func(path string) bool) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsnotify: fsWatch,
		accept:   accept,
		debounce: debounce,
		batches:  make(chan []string),
		done:     make(chan struct{}),
	}
	if err := w.watchRecursive(root); err != nil {
		fsWatch.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

/**
 * @brief The channel batches are delivered on. Closed by Close.
 */
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

/**
 * @brief Stops watching and closes the batch channel.
 */
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsnotify.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.batches)

	pending := map[string]struct{}{}
	var flush <-chan time.Time

	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
					// Files dropped into the directory before the watch
					// lands are picked up on their next write.
					if err := w.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch new directory %s: %v", e.Name, err)
					}
					continue
				}
			}
			if e.Op&fsnotify.Remove != 0 || e.Op&fsnotify.Rename != 0 {
				w.fsnotify.Remove(e.Name)
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && w.accept(e.Name) {
				pending[e.Name] = struct{}{}
				flush = time.After(w.debounce)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("watch error: %v", err)

		case <-flush:
			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}
			sort.Strings(batch)
			pending = map[string]struct{}{}
			flush = nil
			select {
			case w.batches <- batch:
			case <-w.done:
				return
			}

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.fsnotify.Add(path); err != nil {
				return err
			}
			core.LogDebug("watching %s", path)
		}
		return nil
	})
}
