package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "IFCLCA"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader that reads an explicit config file instead
// of searching the .ifclca directory.
func NewFileLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (IFCLCA_*)
// 2. Config file (.ifclca/config.yml or .ifclca/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, DirName))
	}

	// Replace . with _ in env var names (e.g., IFCLCA_STORAGE_BATCH_SIZE)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Scalars only; list values come from the config file
	v.BindEnv("project.name")
	v.BindEnv("extraction.fraction_tolerance")
	v.BindEnv("extraction.material_batch_size")
	v.BindEnv("storage.database_path")
	v.BindEnv("storage.batch_size")
	v.BindEnv("matching.database_path")
	v.BindEnv("matching.max_results")
	v.BindEnv("matching.cache_size")
	v.BindEnv("matching.fuzziness")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("project.name", defaults.Project.Name)

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("extraction.fraction_tolerance", defaults.Extraction.FractionTolerance)
	v.SetDefault("extraction.material_batch_size", defaults.Extraction.MaterialBatchSize)
	v.SetDefault("extraction.element_types", defaults.Extraction.ElementTypes)
	v.SetDefault("extraction.exclude_types", defaults.Extraction.ExcludeTypes)
	v.SetDefault("extraction.basic_types", defaults.Extraction.BasicTypes)

	v.SetDefault("storage.database_path", defaults.Storage.DatabasePath)
	v.SetDefault("storage.batch_size", defaults.Storage.BatchSize)

	v.SetDefault("matching.database_path", defaults.Matching.DatabasePath)
	v.SetDefault("matching.max_results", defaults.Matching.MaxResults)
	v.SetDefault("matching.cache_size", defaults.Matching.CacheSize)
	v.SetDefault("matching.fuzziness", defaults.Matching.Fuzziness)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}

// ResolvePath makes a configured path absolute against the project root.
func ResolvePath(rootDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}
