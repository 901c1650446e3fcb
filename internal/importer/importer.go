package importer

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvp-joe/ifc-lca/internal/config"
	"github.com/mvp-joe/ifc-lca/internal/extract"
	"github.com/mvp-joe/ifc-lca/internal/storage"
)

// Stats contains statistics about one import pass.
type Stats struct {
	FilesDiscovered int
	FilesImported   int
	FilesUnchanged  int
	FilesFailed     int
	FilesRemoved    int
	ElementsWritten int
	ElementsPruned  int
	Duration        time.Duration
}

// Importer extracts elements from the model files of a project directory
// and persists them. Files whose content hash matches the stored one are
// skipped; files that disappeared are removed from the store.
type Importer struct {
	rootDir   string
	project   string
	discovery *FileDiscovery
	writer    *storage.Writer
	reader    *storage.Reader
	extract   []extract.Option
	progress  ProgressReporter
	force     bool
}

// Option configures an Importer.
type Option func(*Importer)

// WithProgress sets the progress reporter. Defaults to NoOpProgressReporter.
func WithProgress(p ProgressReporter) Option {
	return func(imp *Importer) {
		if p != nil {
			imp.progress = p
		}
	}
}

// WithProject overrides the project name from the configuration.
func WithProject(name string) Option {
	return func(imp *Importer) {
		if name != "" {
			imp.project = name
		}
	}
}

// WithForce re-imports files even when their checksum is unchanged.
func WithForce(force bool) Option {
	return func(imp *Importer) {
		imp.force = force
	}
}

// WithExtractOptions replaces the extractor options derived from the configuration.
func WithExtractOptions(opts ...extract.Option) Option {
	return func(imp *Importer) {
		imp.extract = opts
	}
}

// New creates an importer for rootDir writing into db.
func New(rootDir string, cfg *config.Config, db *sql.DB, opts ...Option) (*Importer, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	discovery, err := NewFileDiscovery(absRoot, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to compile path patterns: %w", err)
	}

	imp := &Importer{
		rootDir:   absRoot,
		project:   cfg.Project.Name,
		discovery: discovery,
		writer:    storage.NewWriter(db, cfg.Storage.BatchSize),
		reader:    storage.NewReader(db),
		extract:   cfg.ExtractOptions(false),
		progress:  &NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp, nil
}

// Project returns the project imported elements are filed under.
func (imp *Importer) Project() string {
	return imp.project
}

// RootDir returns the absolute directory the importer discovers files in.
func (imp *Importer) RootDir() string {
	return imp.rootDir
}

// Import discovers changes and writes them to the store.
// hint: Optional list of files that changed (from watcher). If empty, full discovery.
//
// A file that fails to read, parse or write is logged and counted in
// FilesFailed; the pass continues with the next file. Cancellation is
// checked between files and returns ctx.Err() with the stats so far.
func (imp *Importer) Import(ctx context.Context, hint []string) (*Stats, error) {
	startTime := time.Now()
	stats := &Stats{}

	runID, err := imp.writer.StartImportRun(ctx, imp.project)
	if err != nil {
		return nil, err
	}

	toProcess, deleted, err := imp.detectChanges(ctx, hint)
	if err != nil {
		return nil, fmt.Errorf("change detection failed: %w", err)
	}
	stats.FilesDiscovered = len(toProcess)

	for _, relPath := range deleted {
		if err := imp.writer.DeleteFile(ctx, imp.project, relPath); err != nil {
			log.Printf("Warning: failed to remove %s: %v", relPath, err)
			continue
		}
		stats.FilesRemoved++
	}

	imp.progress.OnFileProcessingStart(len(toProcess))
	var runErr error
	for _, path := range toProcess {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		written, pruned, imported, err := imp.importFile(ctx, path)
		switch {
		case err != nil:
			log.Printf("Warning: failed to import %s: %v", path, err)
			stats.FilesFailed++
		case imported:
			stats.FilesImported++
			stats.ElementsWritten += written
			stats.ElementsPruned += pruned
		default:
			stats.FilesUnchanged++
		}
		imp.progress.OnFileProcessed(filepath.Base(path))
	}

	stats.Duration = time.Since(startTime)

	run := storage.ImportRun{
		ID:              runID,
		Project:         imp.project,
		FilesImported:   stats.FilesImported,
		FilesUnchanged:  stats.FilesUnchanged,
		FilesFailed:     stats.FilesFailed,
		ElementsWritten: stats.ElementsWritten,
	}
	if err := imp.writer.FinishImportRun(context.WithoutCancel(ctx), run); err != nil {
		log.Printf("Warning: %v", err)
	}

	if runErr != nil {
		return stats, runErr
	}
	imp.progress.OnComplete(stats)
	return stats, nil
}

// detectChanges returns the absolute paths to process and the relative
// paths to remove from the store.
func (imp *Importer) detectChanges(ctx context.Context, hint []string) (toProcess, deleted []string, err error) {
	if len(hint) == 0 {
		imp.progress.OnDiscoveryStart()
		files, err := imp.discovery.DiscoverFiles()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to discover files: %w", err)
		}
		imp.progress.OnDiscoveryComplete(len(files))

		onDisk := make(map[string]bool, len(files))
		for _, f := range files {
			rel, err := imp.discovery.relative(f)
			if err != nil {
				return nil, nil, err
			}
			onDisk[rel] = true
		}

		stored, err := imp.reader.SourceFiles(ctx, imp.project)
		if err != nil {
			return nil, nil, err
		}
		for _, rel := range stored {
			if !onDisk[rel] {
				deleted = append(deleted, rel)
			}
		}
		return files, deleted, nil
	}

	seen := make(map[string]bool, len(hint))
	for _, path := range hint {
		abs := path
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(imp.rootDir, path)
		}
		rel, err := imp.discovery.relative(abs)
		if err != nil || seen[rel] || rel == ".." || strings.HasPrefix(rel, "../") {
			continue
		}

		info, err := os.Stat(abs)
		switch {
		case err == nil && info.IsDir():
			files, err := imp.discoverUnder(abs)
			if err != nil {
				return nil, nil, err
			}
			for _, f := range files {
				if r, _ := imp.discovery.relative(f); !seen[r] {
					seen[r] = true
					toProcess = append(toProcess, f)
				}
			}
		case !imp.discovery.Matches(rel):
		case errors.Is(err, fs.ErrNotExist):
			seen[rel] = true
			deleted = append(deleted, rel)
		case err != nil:
			log.Printf("Warning: failed to stat %s: %v", abs, err)
		case info.Mode().IsRegular():
			seen[rel] = true
			toProcess = append(toProcess, abs)
		}
	}
	return toProcess, deleted, nil
}

// discoverUnder returns the model files below dir that the discovery rules accept.
func (imp *Importer) discoverUnder(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := imp.discovery.relative(path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && imp.discovery.shouldIgnore(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if imp.discovery.Matches(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover files under %s: %w", dir, err)
	}
	return files, nil
}

// importFile runs one file through extraction and storage. imported is
// false when the file was skipped as unchanged.
func (imp *Importer) importFile(ctx context.Context, path string) (written, pruned int, imported bool, err error) {
	relPath, err := imp.discovery.relative(path)
	if err != nil {
		return 0, 0, false, err
	}

	data, hash, err := readWithChecksum(path)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to read file: %w", err)
	}

	if !imp.force {
		stored, ok, err := imp.reader.FileChecksum(ctx, imp.project, relPath)
		if err != nil {
			return 0, 0, false, err
		}
		if ok && stored == hash {
			return 0, 0, false, nil
		}
	}

	result, err := extract.ExtractReader(bytes.NewReader(data), imp.extract...)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to parse model: %w", err)
	}
	elements := result.Elements()

	keys := make([]string, len(elements))
	for i, el := range elements {
		keys[i] = storage.ElementKey(el, relPath)
	}

	// Prune first so the material aggregate refreshed by the upsert no
	// longer counts elements that vanished from the file.
	pruned, err = imp.writer.PruneFile(ctx, imp.project, relPath, keys)
	if err != nil {
		return 0, 0, false, err
	}

	written, err = imp.writer.UpsertElements(ctx, imp.project, relPath, elements)
	if err != nil {
		return written, pruned, false, err
	}

	if err := imp.writer.SetFileChecksum(ctx, imp.project, relPath, hash, len(elements)); err != nil {
		return written, pruned, false, err
	}
	return written, pruned, true, nil
}
