// Package dump persists an assembled configuration as a YAML document.
package dump

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/serjche/Ceedling/pkg/config"
)

// Record is one dump of a resolved configuration.
type Record struct {
	Project   string
	Timestamp string
	Resolved  *config.Resolved
}

// Overrides defines user-supplied preferences for the dump file location.
type Overrides struct {
	Directory string
	FileName  string
	FilePath  string
}

// PathResolver resolves the effective filesystem path for the dump file.
type PathResolver interface {
	Resolve(Overrides) (string, error)
}

// Manager writes dump files atomically.
type Manager struct {
	resolver PathResolver
	dirPerm  os.FileMode
	filePerm os.FileMode
}

var (
	errPathResolverMissing = errors.New("dump path resolver not configured")
	errEmptyDumpPath       = errors.New("resolved dump file path empty")
	errNothingToDump       = errors.New("resolved configuration is nil")
)

// ErrWriteFailed wraps every filesystem failure while writing a dump.
var ErrWriteFailed = errors.New("configuration dump could not be written")

// NewManager constructs a Manager with the provided resolver.
func NewManager(resolver PathResolver) *Manager {
	return &Manager{
		resolver: resolver,
		dirPerm:  0o755,
		filePerm: 0o644,
	}
}

func (m *Manager) resolvePath(overrides Overrides) (string, error) {
	if m == nil || m.resolver == nil {
		return "", errPathResolverMissing
	}
	path, err := m.resolver.Resolve(overrides)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return "", errEmptyDumpPath
	}
	return path, nil
}

// Encode renders record as YAML. Keys are emitted in sorted order under a
// header comment naming the project and time of the dump.
func Encode(record Record) ([]byte, error) {
	if record.Resolved == nil {
		return nil, errNothingToDump
	}
	values := make(map[string]any, record.Resolved.Len())
	for key, v := range record.Resolved.All() {
		values[key] = v.Interface()
	}

	body, err := yaml.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal configuration: %w", err)
	}
	out := []byte(fmt.Sprintf("# Resolved configuration of %s\n# Generated %s\n", record.Project, record.Timestamp))
	out = append(out, body...)
	return out, nil
}

// Write persists record to the resolved dump path and returns that path.
func (m *Manager) Write(record Record, overrides Overrides) (string, error) {
	path, err := m.resolvePath(overrides)
	if err != nil {
		return "", err
	}

	if record.Timestamp == "" {
		record.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := Encode(record)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, m.dirPerm); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	tmp, err := os.CreateTemp(dir, "dump-*.yml")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(m.filePerm); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return path, nil
}
