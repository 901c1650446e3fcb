package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ifc-lca/internal/config"
	"github.com/mvp-joe/ifc-lca/internal/storage"
)

// Test Plan for materials command:
// - the table lists name, total volume and element count per material
// - an empty project prints a hint instead of a table
// - --json prints the project, materials and (with --match) matches
// - --match adds the best candidate to every table row
// - --match without matching.database_path fails with a clear error
// - loadMatcher resolves the database path against the project root

var environmentalDB = filepath.Join("..", "..", "testdata", "environmental.json")

// importedProject imports the sample model into an in-memory store.
func importedProject(t *testing.T) (string, *config.Config, *sql.DB) {
	t.Helper()

	rootDir := t.TempDir()
	copyModel(t, rootDir, "house.ifc")
	db := storage.NewTestDB(t)
	cfg := config.Default()

	var out bytes.Buffer
	_, err := importProject(context.Background(), &out, rootDir, cfg, db, importOptions{Quiet: true})
	require.NoError(t, err)
	return rootDir, cfg, db
}

func withMatching(t *testing.T, cfg *config.Config) *config.Config {
	t.Helper()
	abs, err := filepath.Abs(environmentalDB)
	require.NoError(t, err)
	cfg.Matching.DatabasePath = abs
	return cfg
}

func TestListMaterials_Table(t *testing.T) {
	t.Parallel()

	rootDir, cfg, db := importedProject(t)

	var out bytes.Buffer
	require.NoError(t, listMaterials(context.Background(), &out, rootDir, cfg, db, materialsOptions{}))

	text := out.String()
	assert.Contains(t, text, "MATERIAL")
	assert.NotContains(t, text, "BEST MATCH")
	assert.Regexp(t, `Concrete C30/37\s+32\.500\s+2`, text)
	assert.Regexp(t, `Glass\s+0\.060\s+1`, text)
	assert.Regexp(t, `Mineral Wool\s+10\.000\s+1`, text)
}

func TestListMaterials_EmptyProject(t *testing.T) {
	t.Parallel()

	rootDir, cfg, db := importedProject(t)

	var out bytes.Buffer
	require.NoError(t, listMaterials(context.Background(), &out, rootDir, cfg, db, materialsOptions{Project: "other"}))
	assert.Contains(t, out.String(), "No materials stored for project other")

	out.Reset()
	require.NoError(t, listMaterials(context.Background(), &out, rootDir, cfg, db, materialsOptions{Project: "other", JSON: true}))
	var report materialsReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "other", report.Project)
	assert.NotNil(t, report.Materials)
	assert.Empty(t, report.Materials)
}

func TestListMaterials_JSONWithMatches(t *testing.T) {
	t.Parallel()

	rootDir, cfg, db := importedProject(t)
	cfg = withMatching(t, cfg)

	var out bytes.Buffer
	require.NoError(t, listMaterials(context.Background(), &out, rootDir, cfg, db, materialsOptions{Match: true, JSON: true}))

	var report materialsReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, cfg.Project.Name, report.Project)
	require.Len(t, report.Materials, 5)
	require.Len(t, report.Matches, 5)

	concrete := report.Matches[0]
	assert.Equal(t, "Concrete C30/37", concrete.Material.Name)
	require.NotEmpty(t, concrete.Candidates)
	assert.Equal(t, "oko-1.4.01", concrete.Candidates[0].ID)
}

func TestListMaterials_TableWithMatches(t *testing.T) {
	t.Parallel()

	rootDir, cfg, db := importedProject(t)
	cfg = withMatching(t, cfg)

	var out bytes.Buffer
	require.NoError(t, listMaterials(context.Background(), &out, rootDir, cfg, db, materialsOptions{Match: true}))

	text := out.String()
	assert.Contains(t, text, "BEST MATCH")
	assert.Contains(t, text, "(oko-1.4.01)")
}

func TestListMaterials_MatchWithoutDatabase(t *testing.T) {
	t.Parallel()

	rootDir, cfg, db := importedProject(t)

	var out bytes.Buffer
	err := listMaterials(context.Background(), &out, rootDir, cfg, db, materialsOptions{Match: true})
	require.ErrorIs(t, err, errNoMatchingDatabase)
	assert.Empty(t, out.String())
}

func TestLoadMatcher_RelativePath(t *testing.T) {
	t.Parallel()

	abs, err := filepath.Abs(environmentalDB)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Matching.DatabasePath = filepath.Base(abs)

	m, err := loadMatcher(context.Background(), filepath.Dir(abs), cfg)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 7, m.Len())

	cfg.Matching.DatabasePath = "missing.json"
	_, err = loadMatcher(context.Background(), t.TempDir(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load matcher")
}
