package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ifc-lca/internal/config"
	"github.com/mvp-joe/ifc-lca/internal/storage"
)

// Test Plan for import command:
// - importProject imports every discovered model and reports progress
// - a second run skips unchanged files, --force re-imports them
// - paths restrict the import to the given files
// - --project files elements under the given name
// - --quiet suppresses the progress output
// - openDatabase creates the store below the project root

// copyModel copies the sample model into dir under name and returns its path.
func copyModel(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(sampleModel)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestImportProject(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	copyModel(t, rootDir, "house.ifc")
	copyModel(t, rootDir, filepath.Join("annex", "annex.ifc"))
	db := storage.NewTestDB(t)
	cfg := config.Default()

	var out bytes.Buffer
	stats, err := importProject(context.Background(), &out, rootDir, cfg, db, importOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesImported)
	assert.Equal(t, 6, stats.ElementsWritten)
	assert.Contains(t, out.String(), "Import complete")

	files, err := storage.NewReader(db).SourceFiles(context.Background(), cfg.Project.Name)
	require.NoError(t, err)
	assert.Equal(t, []string{"annex/annex.ifc", "house.ifc"}, files)

	out.Reset()
	stats, err = importProject(context.Background(), &out, rootDir, cfg, db, importOptions{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesImported)
	assert.Equal(t, 2, stats.FilesUnchanged)
	assert.Empty(t, out.String())

	stats, err = importProject(context.Background(), &out, rootDir, cfg, db, importOptions{Quiet: true, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesImported)
}

func TestImportProject_PathsAndProject(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	copyModel(t, rootDir, "house.ifc")
	copyModel(t, rootDir, "garage.ifc")
	db := storage.NewTestDB(t)

	var out bytes.Buffer
	stats, err := importProject(context.Background(), &out, rootDir, config.Default(), db, importOptions{
		Project: "garage",
		Paths:   []string{"garage.ifc"},
		Quiet:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesImported)

	reader := storage.NewReader(db)
	files, err := reader.SourceFiles(context.Background(), "garage")
	require.NoError(t, err)
	assert.Equal(t, []string{"garage.ifc"}, files)

	projects, err := reader.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"garage"}, projects)
}

func TestOpenDatabase(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	cfg := config.Default()

	db, err := openDatabase(rootDir, cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, config.ResolvePath(rootDir, cfg.Storage.DatabasePath))
	require.NoError(t, db.Ping())
}
