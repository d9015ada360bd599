package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay debounces editors that write a file in several steps.
const reloadDelay = 200 * time.Millisecond

// WatchDependencies re-applies the dependency file at path whenever it is
// written, until ctx is done. Reload failures are logged and the previous
// registrations stay in place.
//
// The initial load is the caller's job:
//
//	if err := config.LoadDependencies(c, cfg.DI.File, catalog); err != nil { ... }
//	go config.WatchDependencies(ctx, c, cfg.DI.File, catalog, logger)
func WatchDependencies(ctx context.Context, reg Registrar, path string, catalog *Catalog, logger *zap.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	// Watch the directory so atomic renames are seen.
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}
	logger.Info("watching dependency file", zap.String("file", target))

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			debounce = time.After(reloadDelay)

		case <-debounce:
			debounce = nil
			if err := LoadDependencies(reg, target, catalog); err != nil {
				logger.Warn("dependency file reload failed", zap.String("file", target), zap.Error(err))
				continue
			}
			logger.Info("dependency file reloaded", zap.String("file", target))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("dependency file watcher error", zap.Error(err))
		}
	}
}
