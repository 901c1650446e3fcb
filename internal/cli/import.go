package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/ifc-lca/internal/config"
	"github.com/mvp-joe/ifc-lca/internal/importer"
	"github.com/mvp-joe/ifc-lca/internal/storage"
)

var (
	importProjectFlag string
	quietFlag         bool
	watchFlag         bool
	forceFlag         bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [paths...]",
	Short: "Import the IFC models of the project into the element store",
	Long: `Import discovers IFC models below the working directory (see paths.include
and paths.ignore), extracts their elements and upserts them into the SQLite
store at storage.database_path. Elements are keyed by GlobalId within a
project; the per-project material totals are recomputed after each file.

Files whose content did not change since the last import are skipped, and
models that were deleted are removed from the store. Given paths restrict the
import to those files or directories.

Examples:
  # Import every model of the project
  ifclca import

  # Import one model into a named project
  ifclca import models/house.ifc --project house

  # Keep the store in sync while models are re-exported
  ifclca import --watch
`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importProjectFlag, "project", "p", "", "Project name (default: project.name from config)")
	importCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	importCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for model changes and import incrementally")
	importCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Re-import files even if unchanged")
}

// importOptions holds the flag values of one import invocation.
type importOptions struct {
	Project string
	Paths   []string
	Quiet   bool
	Watch   bool
	Force   bool
}

func runImport(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted! Cancelling import...")
			cancel()
		case <-ctx.Done():
		}
	}()

	rootDir, err := workingDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(rootDir)
	if err != nil {
		return err
	}

	db, err := openDatabase(rootDir, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = importProject(ctx, cmd.OutOrStdout(), rootDir, cfg, db, importOptions{
		Project: importProjectFlag,
		Paths:   args,
		Quiet:   quietFlag,
		Watch:   watchFlag,
		Force:   forceFlag,
	})
	return err
}

// openDatabase opens the element store configured for rootDir.
func openDatabase(rootDir string, cfg *config.Config) (*sql.DB, error) {
	dbPath := config.ResolvePath(rootDir, cfg.Storage.DatabasePath)
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open element store: %w", err)
	}
	return db, nil
}

// importProject runs one import pass, or watches until ctx is cancelled
// when opts.Watch is set (returning nil stats).
func importProject(ctx context.Context, out io.Writer, rootDir string, cfg *config.Config, db *sql.DB, opts importOptions) (*importer.Stats, error) {
	var progress importer.ProgressReporter = NewCLIProgressReporter(out, opts.Quiet)
	if opts.Watch {
		// a progress bar per change batch would interleave with watcher logs
		progress = &importer.NoOpProgressReporter{}
	}

	imp, err := importer.New(rootDir, cfg, db,
		importer.WithProject(opts.Project),
		importer.WithForce(opts.Force),
		importer.WithProgress(progress),
		importer.WithExtractOptions(cfg.ExtractOptions(verbose)...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create importer: %w", err)
	}

	if opts.Watch {
		if !opts.Quiet {
			log.Printf("Watching %s for model changes (project %s). Press Ctrl+C to stop.", imp.RootDir(), imp.Project())
		}
		return nil, imp.Watch(ctx, cfg.GetSourceExtensions())
	}

	stats, err := imp.Import(ctx, opts.Paths)
	if err != nil {
		return stats, fmt.Errorf("import failed: %w", err)
	}
	return stats, nil
}
