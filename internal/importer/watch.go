package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvp-joe/ifc-lca/internal/config"
	"github.com/mvp-joe/ifc-lca/internal/watcher"
)

// skipDirs are never descended into by the watcher.
var skipDirs = []string{".git", config.DirName, "node_modules"}

// watchAdapter exposes an Importer to the watch coordinator.
type watchAdapter struct {
	imp *Importer
}

func (a watchAdapter) Import(ctx context.Context, hint []string) (*watcher.ImportStats, error) {
	stats, err := a.imp.Import(ctx, hint)
	if stats == nil {
		return nil, err
	}
	return &watcher.ImportStats{
		FilesImported:   stats.FilesImported,
		FilesRemoved:    stats.FilesRemoved,
		ElementsWritten: stats.ElementsWritten,
	}, err
}

// Watch imports the project once, then keeps the store in sync with
// changes to files with the given extensions until ctx is cancelled.
// Cancellation is a clean shutdown and returns nil.
func (imp *Importer) Watch(ctx context.Context, extensions []string) error {
	fw, err := watcher.NewFileWatcher([]string{imp.rootDir}, extensions, skipDirs...)
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	coordinator := watcher.NewWatchCoordinator(fw, watchAdapter{imp: imp})
	if err := coordinator.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
