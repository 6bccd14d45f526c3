// Package environment extracts environment variable declarations from the
// environment section of a raw configuration. Applying them to a process is
// delegated to an Applier.
package environment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/serjche/Ceedling/pkg/config"
)

// ErrInvalidDeclaration indicates an environment entry that is neither a
// name/value mapping nor a dotenv file reference.
var ErrInvalidDeclaration = errors.New("invalid environment declaration")

// Declaration is one variable to set.
type Declaration struct {
	Name   string
	Value  string
	Source string
}

// SourceInline marks declarations written directly in the configuration.
const SourceInline = "inline"

// Declarations is the parsed environment section.
type Declarations struct {
	Vars  []Declaration
	Files []string
}

// Map returns the declarations as name/value pairs; later entries win.
func (d Declarations) Map() map[string]string {
	out := make(map[string]string, len(d.Vars))
	for _, v := range d.Vars {
		out[v.Name] = v.Value
	}
	return out
}

// DotenvReader reads a dotenv file into name/value pairs.
type DotenvReader func(path string) (map[string]string, error)

// ReadDotenv reads dotenv files from disk.
func ReadDotenv(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// ReadDotenvFrom returns a reader that resolves relative dotenv paths
// against dir before reading them with read, or ReadDotenv when read is nil.
func ReadDotenvFrom(dir string, read DotenvReader) DotenvReader {
	if read == nil {
		read = ReadDotenv
	}
	return func(path string) (map[string]string, error) {
		p := filepath.FromSlash(path)
		if dir != "" && !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		return read(p)
	}
}

// Files returns the dotenv file references of an environment section without
// reading them.
func Files(section config.Node) []string {
	var files []string
	for _, item := range entries(section) {
		if s, ok := item.Value().(string); ok {
			files = append(files, s)
		}
	}
	return files
}

// Collect parses the environment section. Entries are either single mappings
// of NAME to a value (sequences are joined with spaces) or strings naming a
// dotenv file whose variables are read with read. Names are upper-cased.
func Collect(section config.Node, read DotenvReader) (Declarations, error) {
	if read == nil {
		read = ReadDotenv
	}
	var out Declarations
	for i, item := range entries(section) {
		switch item.Kind() {
		case config.KindNull:
			continue
		case config.KindMapping:
			for _, name := range item.Keys() {
				value, _ := item.Field(name)
				rendered, err := render(value)
				if err != nil {
					return Declarations{}, fmt.Errorf("environment[%d] %s: %w", i, name, err)
				}
				out.Vars = append(out.Vars, Declaration{Name: strings.ToUpper(name), Value: rendered, Source: SourceInline})
			}
		case config.KindScalar:
			path, ok := item.Value().(string)
			if !ok || strings.TrimSpace(path) == "" {
				return Declarations{}, fmt.Errorf("%w: environment[%d] %s", ErrInvalidDeclaration, i, item)
			}
			vars, err := read(path)
			if err != nil {
				return Declarations{}, fmt.Errorf("read dotenv %q: %w", path, err)
			}
			names := make([]string, 0, len(vars))
			for name := range vars {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				out.Vars = append(out.Vars, Declaration{Name: strings.ToUpper(name), Value: vars[name], Source: path})
			}
			out.Files = append(out.Files, path)
		default:
			return Declarations{}, fmt.Errorf("%w: environment[%d] is a %s", ErrInvalidDeclaration, i, item.Kind())
		}
	}
	return out, nil
}

// entries accepts either a sequence of entries or a single mapping.
func entries(section config.Node) []config.Node {
	switch section.Kind() {
	case config.KindSequence:
		return section.Items()
	case config.KindMapping:
		return []config.Node{section}
	default:
		return nil
	}
}

func render(value config.Node) (string, error) {
	if items, ok := value.AsStrings(); ok {
		return strings.Join(items, " "), nil
	}
	if s, ok := value.AsString(); ok {
		return s, nil
	}
	if value.IsNull() {
		return "", nil
	}
	return "", fmt.Errorf("%w: value is a %s", ErrInvalidDeclaration, value.Kind())
}

// Applier applies declarations as a side effect of assembly.
type Applier interface {
	Apply(Declarations) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(Declarations) error

// Apply calls f.
func (f ApplierFunc) Apply(d Declarations) error { return f(d) }

// ProcessApplier sets declarations on the current process. References such as
// ${HOME} in values are expanded against the environment at apply time.
type ProcessApplier struct {
	Setenv func(key, value string) error
}

// Apply sets every declaration in order.
func (p ProcessApplier) Apply(d Declarations) error {
	setenv := p.Setenv
	if setenv == nil {
		setenv = os.Setenv
	}
	for _, v := range d.Vars {
		if err := setenv(v.Name, os.ExpandEnv(v.Value)); err != nil {
			return fmt.Errorf("set %s: %w", v.Name, err)
		}
	}
	return nil
}

// Discard ignores declarations.
var Discard Applier = ApplierFunc(func(Declarations) error { return nil })
