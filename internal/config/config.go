package config

import (
	"strings"

	"github.com/mvp-joe/ifc-lca/internal/extract"
)

// DirName is the per-project directory holding config.yml and the database.
const DirName = ".ifclca"

// Config represents the complete ifclca configuration.
// It can be loaded from .ifclca/config.yml with environment variable overrides.
type Config struct {
	Project    ProjectConfig    `yaml:"project" mapstructure:"project"`
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Matching   MatchingConfig   `yaml:"matching" mapstructure:"matching"`
}

// ProjectConfig names the project imported elements are filed under.
type ProjectConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
}

// PathsConfig defines which IFC files to import and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for model files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// ExtractionConfig tunes the element extractor.
type ExtractionConfig struct {
	FractionTolerance float64  `yaml:"fraction_tolerance" mapstructure:"fraction_tolerance"`   // allowed drift of layer fraction sums
	MaterialBatchSize int      `yaml:"material_batch_size" mapstructure:"material_batch_size"` // material relations per batch
	ElementTypes      []string `yaml:"element_types" mapstructure:"element_types"`             // allowlist, empty means all
	ExcludeTypes      []string `yaml:"exclude_types" mapstructure:"exclude_types"`             // geometry-bearing types to skip
	BasicTypes        []string `yaml:"basic_types" mapstructure:"basic_types"`                 // types listed by the basic pathway
}

// StorageConfig defines where imported elements are persisted.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"` // relative paths resolve against the project root
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`       // elements per write transaction
}

// MatchingConfig configures matching of model materials against an
// environmental database.
type MatchingConfig struct {
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"` // JSON environmental database, optional
	MaxResults   int    `yaml:"max_results" mapstructure:"max_results"`
	CacheSize    int    `yaml:"cache_size" mapstructure:"cache_size"`
	Fuzziness    int    `yaml:"fuzziness" mapstructure:"fuzziness"` // edit distance, 0 disables fuzzy matching
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Name: "default",
		},
		Paths: PathsConfig{
			Include: []string{
				"**/*.ifc",
				"**/*.IFC",
			},
			Ignore: []string{
				".git/**",
				DirName + "/**",
				"node_modules/**",
				"backup/**",
			},
		},
		Extraction: ExtractionConfig{
			FractionTolerance: extract.DefaultFractionTolerance,
			MaterialBatchSize: extract.DefaultMaterialBatchSize,
			ElementTypes:      []string{},
			ExcludeTypes:      append([]string(nil), extract.DefaultExcludeTypes...),
			BasicTypes:        append([]string(nil), extract.DefaultBasicTypes...),
		},
		Storage: StorageConfig{
			DatabasePath: DirName + "/ifclca.db",
			BatchSize:    500,
		},
		Matching: MatchingConfig{
			DatabasePath: "",
			MaxResults:   5,
			CacheSize:    1000,
			Fuzziness:    1,
		},
	}
}

// ExtractOptions converts the extraction section into extractor options.
func (c *Config) ExtractOptions(verbose bool) []extract.Option {
	return []extract.Option{
		extract.WithFractionTolerance(c.Extraction.FractionTolerance),
		extract.WithMaterialBatchSize(c.Extraction.MaterialBatchSize),
		extract.WithElementTypes(c.Extraction.ElementTypes...),
		extract.WithExcludeTypes(c.Extraction.ExcludeTypes...),
		extract.WithVerbose(verbose),
	}
}

// GetSourceExtensions extracts unique file extensions from the include
// patterns, lower-cased with a leading dot (e.g. []string{".ifc"}).
func (c *Config) GetSourceExtensions() []string {
	extMap := make(map[string]bool)
	for _, pattern := range c.Paths.Include {
		if ext := extractExtension(pattern); ext != "" {
			extMap[strings.ToLower(ext)] = true
		}
	}

	extensions := make([]string, 0, len(extMap))
	for ext := range extMap {
		extensions = append(extensions, ext)
	}
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.ifc" -> ".ifc", "*.ifczip" -> ".ifczip"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
