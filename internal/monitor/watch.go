package monitor

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/allan-project/allan-cli/internal/core/domain"
	"github.com/allan-project/allan-cli/internal/logger"
)

// Event describes one observed filesystem change in the dataset tree.
type Event struct {
	Path string
	Op   string
}

// Watcher reports changes in the dataset stage directories. Used by the
// watch command to follow external tools writing into the tree.
type Watcher struct {
	layout domain.Layout
	fsw    *fsnotify.Watcher
}

// NewWatcher creates a watcher over the dataset stage directories.
func NewWatcher(layout domain.Layout) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{layout: layout, fsw: fsw}
	for _, dir := range layout.StageDirs() {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		logger.Debug("watching %s", dir)
	}

	return w, nil
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers events to the callback until the context is cancelled.
// New dataset directories appearing in a stage are added to the watch
// set so their contents are observed too.
func (w *Watcher) Run(ctx context.Context, onEvent func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.fsw.Add(ev.Name); err != nil {
						logger.Warn("watching new directory %s: %v", ev.Name, err)
					}
				}
			}
			onEvent(Event{Path: ev.Name, Op: ev.Op.String()})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}
