// Package dump resolves where configuration dumps are written.
package dump

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	pkgdump "github.com/serjche/Ceedling/pkg/dump"
)

// DefaultFileName is used when no file name override is given.
const DefaultFileName = "project_config.yml"

var (
	errConflictingOverrides = errors.New("dump file override is invalid: specify either --file or --file-name")
	errInvalidFileName      = errors.New("dump file override is invalid: filename must not contain path separators")
	errNoDirectory          = errors.New("dump directory unknown: project has no build root")
)

// Resolver resolves dump file paths. Without overrides the dump lands in
// DefaultDir, normally the project's build root.
type Resolver struct {
	DefaultDir string
}

// NewResolver constructs a resolver rooted at defaultDir.
func NewResolver(defaultDir string) *Resolver {
	return &Resolver{DefaultDir: defaultDir}
}

func (r *Resolver) Resolve(overrides pkgdump.Overrides) (string, error) {
	if overrides.FilePath != "" && overrides.FileName != "" {
		return "", errConflictingOverrides
	}

	if overrides.FilePath != "" {
		abs, err := filepath.Abs(filepath.Clean(overrides.FilePath))
		if err != nil {
			return "", fmt.Errorf("resolve dump file: %w", err)
		}
		return abs, nil
	}

	dir := overrides.Directory
	if dir == "" {
		dir = r.DefaultDir
	}
	if strings.TrimSpace(dir) == "" {
		return "", errNoDirectory
	}
	dir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", fmt.Errorf("resolve dump directory: %w", err)
	}

	fileName := overrides.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}
	if invalidFileName(fileName) {
		return "", errInvalidFileName
	}

	return filepath.Join(dir, fileName), nil
}

func invalidFileName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return true
	}
	for _, r := range name {
		if r < 32 || r == 127 {
			return true
		}
	}
	// Reserved Windows device names.
	reserved := []string{
		"CON", "PRN", "AUX", "NUL",
		"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
		"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
	}
	upper := strings.ToUpper(name)
	for _, res := range reserved {
		if upper == res || strings.HasPrefix(upper, res+".") {
			return true
		}
	}
	return false
}

// ErrConflictingOverrides exposes the override validation error.
func ErrConflictingOverrides() error { return errConflictingOverrides }

// ErrInvalidFileName exposes the invalid filename error.
func ErrInvalidFileName() error { return errInvalidFileName }

// ErrNoDirectory exposes the missing default directory error.
func ErrNoDirectory() error { return errNoDirectory }
