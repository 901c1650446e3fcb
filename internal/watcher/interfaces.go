package watcher

import "context"

// FileWatcher monitors model files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching model directories, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Importer is the minimal importer surface the coordinator drives.
type Importer interface {
	// Import discovers changes and writes them to the store.
	// hint: Optional list of files that changed (from watcher). If empty, full discovery.
	Import(ctx context.Context, hint []string) (*ImportStats, error)
}

// ImportStats contains statistics about one import pass.
type ImportStats struct {
	FilesImported   int
	FilesRemoved    int
	ElementsWritten int
}
