package watcher

import (
	"context"
	"log"
	"sync"
)

// WatchCoordinator routes debounced file changes from a FileWatcher to an Importer.
type WatchCoordinator struct {
	files    FileWatcher
	importer Importer

	mu  sync.Mutex
	ctx context.Context
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(files FileWatcher, importer Importer) *WatchCoordinator {
	return &WatchCoordinator{
		files:    files,
		importer: importer,
	}
}

// Start begins watching, runs one full import while change callbacks are
// paused, then routes every change batch to the importer.
// Blocks until context is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	// Changes made during the initial sync are delivered on Resume
	c.files.Pause()
	c.runImport(ctx, nil)
	c.files.Resume()

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

// handleFileChange processes file change events from the file watcher.
func (c *WatchCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	log.Printf("Processing %d file change(s)...", len(files))
	c.runImport(ctx, files)
}

func (c *WatchCoordinator) runImport(ctx context.Context, hint []string) {
	stats, err := c.importer.Import(ctx, hint)
	if err != nil {
		log.Printf("Error: import failed: %v", err)
		return
	}

	log.Printf("✓ Imported %d file(s) (%d elements, %d removed)",
		stats.FilesImported, stats.ElementsWritten, stats.FilesRemoved)
}
