package mcp

import (
	"fmt"
	"os"
	"path/filepath"
)

// fileResolver turns tool path arguments into readable model files.
type fileResolver struct {
	rootDir string
}

// resolve returns the absolute path of a model file. Relative paths are
// taken from the project root.
func (r *fileResolver) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.rootDir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return abs, nil
}
