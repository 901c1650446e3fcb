package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ifc-lca/internal/config"
)

// Test Plan for FileDiscovery:
// - default include patterns find .ifc and .IFC files at any depth, including the root
// - ignore patterns and the .ifclca directory exclude whole trees
// - files with other extensions are not returned
// - Matches applies the same rules to single relative paths
// - invalid glob patterns are reported by NewFileDiscovery

func touch(t *testing.T, root string, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("ISO-10303-21;"), 0644))
	return path
}

func TestFileDiscovery_DefaultPatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	want := []string{
		touch(t, root, "house.ifc"),
		touch(t, root, "models/annex.IFC"),
		touch(t, root, "models/sub/deep.ifc"),
	}
	touch(t, root, "backup/old.ifc")
	touch(t, root, ".ifclca/copy.ifc")
	touch(t, root, ".git/objects/blob.ifc")
	touch(t, root, "node_modules/pkg/model.ifc")
	touch(t, root, "notes.txt")
	touch(t, root, "models/house.ifczip")

	cfg := config.Default()
	fd, err := NewFileDiscovery(root, cfg.Paths.Include, cfg.Paths.Ignore)
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.ElementsMatch(t, want, files)
}

func TestFileDiscovery_Matches(t *testing.T) {
	t.Parallel()

	fd, err := NewFileDiscovery(t.TempDir(), []string{"models/**/*.ifc", "*.ifc"}, []string{"**/archive/**"})
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"site.ifc", true},
		{"models/a/b.ifc", true},
		{"models/a/archive/b.ifc", false},
		{"other/b.ifc", false},
		{".ifclca/site.ifc", false},
		{".ifclca", false},
		{"site.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, fd.Matches(tt.path))
		})
	}
}

func TestFileDiscovery_EmptyDirectory(t *testing.T) {
	t.Parallel()

	fd, err := NewFileDiscovery(t.TempDir(), []string{"**/*.ifc"}, nil)
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestNewFileDiscovery_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFileDiscovery(t.TempDir(), []string{"[a-"}, nil)
	assert.Error(t, err)

	_, err = NewFileDiscovery(t.TempDir(), []string{"*.ifc"}, []string{"{unclosed"})
	assert.Error(t, err)
}
