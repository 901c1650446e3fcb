package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ifc-lca/internal/extract"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - LoadConfig() uses defaults when no config file exists
// - LoadConfig() loads from .ifclca/config.yml when present
// - LoadConfig() loads from .ifclca/config.yaml when present
// - LoadConfig() merges config file with defaults
// - Environment variables override config file values
// - Environment variables override defaults when no config file exists
// - NewFileLoader() reads an explicit file and fails when it is missing
// - LoadConfig() returns error for malformed YAML
// - LoadConfig() returns error for invalid configuration values
// - Validate() rejects each invalid field with its sentinel
// - Validate() returns multiple errors for multiple invalid fields
// - ExtractOptions() carries the extraction section into extractor options
// - GetSourceExtensions() derives watched extensions from include patterns

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	configDir := filepath.Join(dir, DirName)
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "default", cfg.Project.Name)
	assert.Contains(t, cfg.Paths.Include, "**/*.ifc")
	assert.Contains(t, cfg.Paths.Ignore, ".ifclca/**")

	assert.Equal(t, extract.DefaultFractionTolerance, cfg.Extraction.FractionTolerance)
	assert.Equal(t, extract.DefaultMaterialBatchSize, cfg.Extraction.MaterialBatchSize)
	assert.Empty(t, cfg.Extraction.ElementTypes)
	assert.Equal(t, extract.DefaultExcludeTypes, cfg.Extraction.ExcludeTypes)
	assert.Equal(t, extract.DefaultBasicTypes, cfg.Extraction.BasicTypes)

	assert.Equal(t, ".ifclca/ifclca.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 500, cfg.Storage.BatchSize)

	assert.Equal(t, "", cfg.Matching.DatabasePath)
	assert.Equal(t, 5, cfg.Matching.MaxResults)
	assert.Equal(t, 1000, cfg.Matching.CacheSize)
	assert.Equal(t, 1, cfg.Matching.Fuzziness)

	assert.NoError(t, Validate(cfg))
}

func TestDefault_DoesNotAliasExtractDefaults(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Extraction.ExcludeTypes[0] = "IFCCHANGED"
	assert.NotEqual(t, "IFCCHANGED", extract.DefaultExcludeTypes[0])
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.Project, cfg.Project)
	assert.Equal(t, expected.Storage, cfg.Storage)
	assert.Equal(t, expected.Matching, cfg.Matching)
	assert.Equal(t, expected.Extraction.FractionTolerance, cfg.Extraction.FractionTolerance)
	assert.Equal(t, expected.Paths.Include, cfg.Paths.Include)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
project:
  name: riverside-housing

paths:
  include:
    - "models/**/*.ifc"
  ignore:
    - "archive/**"

extraction:
  fraction_tolerance: 0.001
  material_batch_size: 250
  element_types: ["IFCWALL", "IFCSLAB"]
  exclude_types: ["IFCSPACE"]
  basic_types: ["IFCWALL"]

storage:
  database_path: /var/lib/ifclca/models.db
  batch_size: 50

matching:
  database_path: data/oekobaudat.json
  max_results: 3
  cache_size: 64
  fuzziness: 2
`)

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "riverside-housing", cfg.Project.Name)
	assert.Equal(t, []string{"models/**/*.ifc"}, cfg.Paths.Include)
	assert.Equal(t, []string{"archive/**"}, cfg.Paths.Ignore)

	assert.Equal(t, 0.001, cfg.Extraction.FractionTolerance)
	assert.Equal(t, 250, cfg.Extraction.MaterialBatchSize)
	assert.Equal(t, []string{"IFCWALL", "IFCSLAB"}, cfg.Extraction.ElementTypes)
	assert.Equal(t, []string{"IFCSPACE"}, cfg.Extraction.ExcludeTypes)
	assert.Equal(t, []string{"IFCWALL"}, cfg.Extraction.BasicTypes)

	assert.Equal(t, "/var/lib/ifclca/models.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 50, cfg.Storage.BatchSize)

	assert.Equal(t, "data/oekobaudat.json", cfg.Matching.DatabasePath)
	assert.Equal(t, 3, cfg.Matching.MaxResults)
	assert.Equal(t, 64, cfg.Matching.CacheSize)
	assert.Equal(t, 2, cfg.Matching.Fuzziness)
}

func TestLoadConfig_LoadsFromConfigYaml(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yaml", `
project:
  name: yaml-project
`)

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "yaml-project", cfg.Project.Name)
}

func TestLoadConfig_MergesConfigWithDefaults(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
storage:
  batch_size: 10
`)

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Storage.BatchSize)
	assert.Equal(t, ".ifclca/ifclca.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "default", cfg.Project.Name)
	assert.Equal(t, 5, cfg.Matching.MaxResults)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
project:
  name: from-file
storage:
  batch_size: 10
  database_path: file.db
`)

	t.Setenv("IFCLCA_PROJECT_NAME", "from-env")
	t.Setenv("IFCLCA_STORAGE_BATCH_SIZE", "25")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Project.Name)
	assert.Equal(t, 25, cfg.Storage.BatchSize)

	// Not overridden, should come from config file
	assert.Equal(t, "file.db", cfg.Storage.DatabasePath)
}

func TestLoadConfig_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	t.Setenv("IFCLCA_EXTRACTION_FRACTION_TOLERANCE", "0.01")
	t.Setenv("IFCLCA_MATCHING_DATABASE_PATH", "/data/epd.json")
	t.Setenv("IFCLCA_MATCHING_FUZZINESS", "0")

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, 0.01, cfg.Extraction.FractionTolerance)
	assert.Equal(t, "/data/epd.json", cfg.Matching.DatabasePath)
	assert.Equal(t, 0, cfg.Matching.Fuzziness)

	assert.Equal(t, 1000, cfg.Matching.CacheSize)
}

func TestNewFileLoader(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("project:\n  name: explicit\n"), 0644))

	cfg, err := NewFileLoader(tempDir, path).Load()
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Project.Name)

	_, err = NewFileLoader(tempDir, filepath.Join(tempDir, "missing.yml")).Load()
	assert.Error(t, err)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
project:
  name: "unclosed quote
storage:
  batch_size: not-a-number
`)

	cfg, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
storage:
  batch_size: -10
`)

	cfg, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
	assert.Contains(t, err.Error(), "invalid")
}

func TestValidate_RejectsInvalidFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty project", func(c *Config) { c.Project.Name = "  " }, ErrEmptyProjectName},
		{"no include patterns", func(c *Config) { c.Paths.Include = nil }, ErrEmptyInclude},
		{"zero tolerance", func(c *Config) { c.Extraction.FractionTolerance = 0 }, ErrInvalidTolerance},
		{"tolerance of one", func(c *Config) { c.Extraction.FractionTolerance = 1 }, ErrInvalidTolerance},
		{"zero material batch", func(c *Config) { c.Extraction.MaterialBatchSize = 0 }, ErrInvalidBatchSize},
		{"empty database path", func(c *Config) { c.Storage.DatabasePath = "" }, ErrEmptyDatabasePath},
		{"negative storage batch", func(c *Config) { c.Storage.BatchSize = -1 }, ErrInvalidBatchSize},
		{"zero max results", func(c *Config) { c.Matching.MaxResults = 0 }, ErrInvalidMatching},
		{"negative cache", func(c *Config) { c.Matching.CacheSize = -5 }, ErrInvalidMatching},
		{"fuzziness too high", func(c *Config) { c.Matching.Fuzziness = 3 }, ErrInvalidMatching},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_RejectsUnknownElementType(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Extraction.ElementTypes = []string{"IFCWALL", "Wall"}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Wall")
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	t.Parallel()

	cfg := &Config{}

	err := Validate(cfg)
	require.Error(t, err)

	errMsg := err.Error()
	assert.Contains(t, errMsg, "validation failed")
	assert.Contains(t, errMsg, "project.name")
	assert.Contains(t, errMsg, "include")
	assert.Contains(t, errMsg, "fraction_tolerance")
	assert.Contains(t, errMsg, "database_path")
	assert.Contains(t, errMsg, "max_results")

	assert.ErrorIs(t, err, ErrEmptyProjectName)
	assert.ErrorIs(t, err, ErrInvalidMatching)
}

func TestExtractOptions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Extraction.FractionTolerance = 0.01
	cfg.Extraction.MaterialBatchSize = 7
	cfg.Extraction.ElementTypes = []string{"IFCWALL"}

	opts := extract.Options{}
	for _, opt := range cfg.ExtractOptions(true) {
		opt(&opts)
	}

	assert.Equal(t, 0.01, opts.FractionTolerance)
	assert.Equal(t, 7, opts.MaterialBatchSize)
	assert.Equal(t, []string{"IFCWALL"}, opts.ElementTypes)
	assert.Equal(t, extract.DefaultExcludeTypes, opts.ExcludeTypes)
	assert.True(t, opts.Verbose)
}

func TestGetSourceExtensions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, []string{".ifc"}, cfg.GetSourceExtensions())

	cfg.Paths.Include = []string{"**/*.ifc", "models/*.ifcxml", "README"}
	assert.ElementsMatch(t, []string{".ifc", ".ifcxml"}, cfg.GetSourceExtensions())

	assert.Equal(t, ".ifc", extractExtension("**/*.ifc"))
	assert.Equal(t, "", extractExtension("model.ifc"))
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("/root", ".ifclca/ifclca.db"), ResolvePath("/root", ".ifclca/ifclca.db"))
	assert.Equal(t, "/abs/db.sqlite", ResolvePath("/root", "/abs/db.sqlite"))
	assert.Equal(t, "", ResolvePath("/root", ""))
}
