package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/monitoring"
)

// debounceWindow coalesces bursts of filesystem events into one reload.
const debounceWindow = 500 * time.Millisecond

// Watcher reloads the catalog when files under the catalog directory
// change. Reloads swap the store snapshot atomically.
type Watcher struct {
	dir     string
	loader  *Loader
	store   *Store
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	debounce *time.Timer
	done     chan struct{}
	closed   bool
}

// NewWatcher creates a watcher over the loader's directory.
func NewWatcher(dir string, loader *Loader, store *Store, logger *logging.Logger, metrics *monitoring.Metrics) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Watcher{
		dir:     dir,
		loader:  loader,
		store:   store,
		logger:  logger.Component("catalog-watcher"),
		metrics: metrics,
		watcher: fsw,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the catalog directory tree.
func (w *Watcher) Start() error {
	if err := w.addTree(w.dir); err != nil {
		return err
	}

	go w.loop()
	w.logger.Info("watching catalog directory", zap.String("dir", w.dir))
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.debounce != nil {
		w.debounce.Stop()
	}
	close(w.done)
	return w.watcher.Close()
}

// addTree watches dir and its subdirectories.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("could not watch directory",
					zap.String("dir", path),
					zap.Error(err),
				)
			}
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) &&
				!event.Has(fsnotify.Remove) {
				continue
			}

			// New subdirectories need their own watch
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.mu.Lock()
					if !w.closed {
						if err := w.watcher.Add(event.Name); err != nil {
							w.logger.Warn("could not watch new directory",
								zap.String("dir", event.Name),
								zap.Error(err),
							)
						}
					}
					w.mu.Unlock()
				}
			}

			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// scheduleReload resets the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceWindow, w.reload)
}

func (w *Watcher) reload() {
	apps, err := w.loader.Load(context.Background())
	if err != nil {
		w.logger.Error("catalog reload failed", zap.Error(err))
		return
	}

	before := make(map[string]bool)
	for _, app := range w.store.List() {
		before[app.ID] = true
	}

	w.store.Replace(apps)
	w.metrics.SetCatalogApps(w.store.Len())
	w.metrics.IncCatalogReloads()

	var added, removed []string
	after := make(map[string]bool, len(apps))
	for _, app := range apps {
		after[app.ID] = true
		if !before[app.ID] {
			added = append(added, app.ID)
		}
	}
	for id := range before {
		if !after[id] {
			removed = append(removed, id)
		}
	}

	w.logger.Info("catalog reloaded",
		zap.Int("apps", len(apps)),
		zap.Strings("added", added),
		zap.Strings("removed", removed),
	)
}
