package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	pkgconfig "github.com/serjche/Ceedling/pkg/config"
)

var (
	// ErrUnsupportedFormat is returned for configuration files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
	// ErrNotMapping indicates a configuration document whose top level is not a mapping.
	ErrNotMapping = errors.New("configuration document must be a mapping")
)

// Loader reads configuration sources into the raw configuration model.
type Loader struct {
	readFile func(string) ([]byte, error)
}

// NewLoader constructs a Loader reading from the local filesystem.
func NewLoader() *Loader {
	return &Loader{readFile: os.ReadFile}
}

// Load parses the file at path. YAML (.yml, .yaml) and HCL (.hcl) documents are
// supported; an empty document yields an empty mapping.
func (l *Loader) Load(path string) (pkgconfig.Node, error) {
	data, err := l.readFile(path)
	if err != nil {
		return pkgconfig.Node{}, fmt.Errorf("read config %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return ParseYAML(data, path)
	case ".hcl":
		return ParseHCL(data, path)
	default:
		return pkgconfig.Node{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ParseYAML decodes a YAML document into a mapping node.
func ParseYAML(data []byte, name string) (pkgconfig.Node, error) {
	var raw map[string]any
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&raw); err != nil && err != io.EOF {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return pkgconfig.Node{}, fmt.Errorf("parse config %q: %w: %v", name, ErrNotMapping, err)
		}
		return pkgconfig.Node{}, fmt.Errorf("parse config %q: %w", name, err)
	}

	node, err := pkgconfig.FromAny(raw)
	if err != nil {
		return pkgconfig.Node{}, fmt.Errorf("convert config %q: %w", name, err)
	}
	if node.IsNull() {
		return pkgconfig.Mapping(nil), nil
	}
	return node, nil
}
