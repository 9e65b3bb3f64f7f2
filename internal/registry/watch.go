package registry

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch drives an additional, automatic Reload whenever the state
// directory changes on disk, debounced so a burst of filesystem events
// (e.g. `duwopctl` writing several files) collapses into one Reload.
// This is purely additive: the explicit management Reload command remains
// the spec-mandated entry point, and Watch is safe to omit entirely.
func (r *Registry) Watch(ctx context.Context, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.stateDir); err != nil {
		return err
	}

	const debounce = 200 * time.Millisecond
	var timer *time.Timer
	reloadCh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Warn("registry watch error", zap.Error(err))
			}
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					select {
					case reloadCh <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounce)
			}
		case <-reloadCh:
			if err := r.Reload(); err != nil && logger != nil {
				logger.Warn("auto-reload failed", zap.Error(err))
			}
		}
	}
}
