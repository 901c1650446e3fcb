package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyProjectName indicates a missing project name
	ErrEmptyProjectName = errors.New("empty project name")

	// ErrEmptyInclude indicates no include patterns were configured
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidTolerance indicates an unusable fraction tolerance
	ErrInvalidTolerance = errors.New("invalid fraction tolerance")

	// ErrInvalidBatchSize indicates a non-positive batch size
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrEmptyDatabasePath indicates a missing storage database path
	ErrEmptyDatabasePath = errors.New("empty database path")

	// ErrInvalidMatching indicates invalid matching limits
	ErrInvalidMatching = errors.New("invalid matching settings")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Project.Name) == "" {
		errs = append(errs, fmt.Errorf("%w: project.name is required", ErrEmptyProjectName))
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := validateExtraction(&cfg.Extraction); err != nil {
		errs = append(errs, err)
	}

	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}

	if err := validateMatching(&cfg.Matching); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	// Ignore patterns can be empty; include patterns cannot
	if len(cfg.Include) == 0 {
		return fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude)
	}
	return nil
}

func validateExtraction(cfg *ExtractionConfig) error {
	var errs []error

	if cfg.FractionTolerance <= 0 || cfg.FractionTolerance >= 1 {
		errs = append(errs, fmt.Errorf("%w: fraction_tolerance must be in (0, 1), got %g", ErrInvalidTolerance, cfg.FractionTolerance))
	}

	if cfg.MaterialBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: material_batch_size must be positive, got %d", ErrInvalidBatchSize, cfg.MaterialBatchSize))
	}

	for _, t := range append(append([]string{}, cfg.ElementTypes...), cfg.BasicTypes...) {
		if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(t)), "IFC") {
			errs = append(errs, fmt.Errorf("unknown element type: %s (types start with IFC)", t))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateStorage(cfg *StorageConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.DatabasePath) == "" {
		errs = append(errs, fmt.Errorf("%w: storage.database_path is required", ErrEmptyDatabasePath))
	}

	if cfg.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidBatchSize, cfg.BatchSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateMatching(cfg *MatchingConfig) error {
	var errs []error

	// database_path is optional; matching is disabled without it

	if cfg.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_results must be positive, got %d", ErrInvalidMatching, cfg.MaxResults))
	}

	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidMatching, cfg.CacheSize))
	}

	// bleve supports edit distances up to 2
	if cfg.Fuzziness < 0 || cfg.Fuzziness > 2 {
		errs = append(errs, fmt.Errorf("%w: fuzziness must be between 0 and 2, got %d", ErrInvalidMatching, cfg.Fuzziness))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches every wrapped sentinel with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{
		msg:  fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - ")),
		errs: errs,
	}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
