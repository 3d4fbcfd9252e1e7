package monitor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/marcus/dtf/internal/config"
	"github.com/marcus/dtf/internal/models"
	"go.uber.org/zap"
)

// WatchConfig calls fn with the reloaded config every time the config file
// under baseDir is written or replaced, until ctx is done. The directory
// holding the file must exist.
func WatchConfig(ctx context.Context, baseDir string, logger *zap.Logger, fn func(*models.Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := config.Path(baseDir)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer w.Close()

	// Saves replace the file by rename, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != filepath.Base(path) || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := config.Load(baseDir)
			if err != nil {
				logger.Warn("reload config", zap.Error(err))
				continue
			}
			logger.Debug("config reloaded", zap.String("op", ev.Op.String()))
			fn(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher", zap.Error(err))
		}
	}
}
