// Package plugins discovers enabled plugins, sorts them into rake, script
// and config categories, and merges config fragments into the raw
// configuration.
package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	projectconfig "github.com/serjche/Ceedling/internal/config"
	"github.com/serjche/Ceedling/pkg/config"
	"github.com/serjche/Ceedling/pkg/telemetry"
)

// Category is the kind of contribution a plugin makes.
type Category string

const (
	CategoryConfig Category = "config"
	CategoryRake   Category = "rake"
	CategoryScript Category = "script"
)

var (
	// ErrPluginLoad marks every plugin discovery or fragment failure.
	ErrPluginLoad = errors.New("plugin load failed")
	// ErrPluginNotFound indicates an enabled plugin matching no convention.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrInvalidEnabledList indicates plugins.enabled is not a list of names.
	ErrInvalidEnabledList = errors.New("plugins.enabled must be a list of names")
)

// LoadError identifies the plugin that could not be loaded.
type LoadError struct {
	Plugin string
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("plugin %q: %v", e.Plugin, e.Err)
	}
	return fmt.Sprintf("plugin %q (%s): %v", e.Plugin, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches ErrPluginLoad for every LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrPluginLoad }

// Plugin is one discovered plugin.
type Plugin struct {
	Name     string
	Category Category
	Path     string
}

// Set is the partition of enabled plugins. Rake holds component file
// identifiers, Script holds plugin names and Config holds fragment paths,
// each in enabled order.
type Set struct {
	Plugins []Plugin
	Rake    []string
	Script  []string
	Config  []string
}

// FragmentLoader reads a config plugin fragment.
type FragmentLoader interface {
	Load(path string) (config.Node, error)
}

// Options configures a Resolver.
type Options struct {
	// Root is the directory relative base paths are resolved against.
	Root string
	// Loader reads fragments; the YAML/HCL project loader by default.
	Loader FragmentLoader
	Stat   func(string) (fs.FileInfo, error)
	Logger telemetry.StructuredLogger
}

// Resolver applies the discovery convention under plugins.base_path:
// <name>/config/<name>.yml is a config plugin, otherwise <name>/<name>.rake
// is a rake plugin, otherwise <name>/lib/<name>.rb is a script plugin.
type Resolver struct {
	root   string
	loader FragmentLoader
	stat   func(string) (fs.FileInfo, error)
	logger telemetry.StructuredLogger
}

// NewResolver constructs a Resolver.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{root: opts.Root, loader: opts.Loader, stat: opts.Stat, logger: opts.Logger}
	if r.stat == nil {
		r.stat = os.Stat
	}
	if r.logger == nil {
		r.logger = telemetry.Discard
	}
	if r.loader == nil {
		r.loader = projectconfig.NewLoader()
	}
	return r
}

// Discover partitions the enabled plugins without loading any fragment.
func (r *Resolver) Discover(raw config.Node) (Set, error) {
	base := config.String(".")
	if v, ok := raw.Lookup(config.SectionPlugins, "base_path"); ok && !v.IsNull() {
		base = v
	}
	basePath, ok := base.AsString()
	if !ok {
		return Set{}, &LoadError{Plugin: "*", Err: fmt.Errorf("plugins.base_path must be a string, got %s", base.Kind())}
	}

	names, err := enabledNames(raw)
	if err != nil {
		return Set{}, &LoadError{Plugin: "*", Err: err}
	}

	var set Set
	for _, name := range names {
		plugin, err := r.classify(basePath, name)
		if err != nil {
			return Set{}, err
		}
		set.Plugins = append(set.Plugins, plugin)
		switch plugin.Category {
		case CategoryConfig:
			set.Config = append(set.Config, plugin.Path)
		case CategoryRake:
			set.Rake = append(set.Rake, plugin.Path)
		case CategoryScript:
			set.Script = append(set.Script, plugin.Name)
		}
		_ = r.logger.Emit(telemetry.Entry{
			Category: telemetry.CategoryPlugin,
			Message:  "plugin discovered",
			Plugin:   name,
			Metadata: map[string]string{"category": string(plugin.Category), "path": plugin.Path},
		})
	}
	return set, nil
}

// Resolve discovers the enabled plugins and merges every config fragment
// into raw in enabled order. Keys already present are never overwritten.
func (r *Resolver) Resolve(raw config.Node) (config.Node, Set, error) {
	set, err := r.Discover(raw)
	if err != nil {
		return config.Node{}, Set{}, err
	}
	merged := raw
	for _, plugin := range set.Plugins {
		if plugin.Category != CategoryConfig {
			continue
		}
		fragment, err := r.loader.Load(r.onDisk(plugin.Path))
		if err != nil {
			return config.Node{}, Set{}, &LoadError{Plugin: plugin.Name, Path: plugin.Path, Err: err}
		}
		if !fragment.IsMapping() {
			return config.Node{}, Set{}, &LoadError{Plugin: plugin.Name, Path: plugin.Path, Err: fmt.Errorf("fragment is a %s, want mapping", fragment.Kind())}
		}
		merged = config.Merge(merged, fragment)
		_ = r.logger.Emit(telemetry.Entry{
			Category: telemetry.CategoryPlugin,
			Message:  "config fragment merged",
			Plugin:   plugin.Name,
			Metadata: map[string]string{"sections": strings.Join(fragment.Keys(), ",")},
		})
	}
	return merged, set, nil
}

func (r *Resolver) classify(basePath, name string) (Plugin, error) {
	candidates := []struct {
		category Category
		rel      string
	}{
		{CategoryConfig, path.Join(basePath, name, "config", name+".yml")},
		{CategoryRake, path.Join(basePath, name, name+".rake")},
		{CategoryScript, path.Join(basePath, name, "lib", name+".rb")},
	}
	for _, c := range candidates {
		info, err := r.stat(r.onDisk(c.rel))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Plugin{}, &LoadError{Plugin: name, Path: c.rel, Err: err}
		}
		if info.IsDir() {
			continue
		}
		return Plugin{Name: name, Category: c.category, Path: c.rel}, nil
	}
	return Plugin{}, &LoadError{Plugin: name, Path: path.Join(basePath, name), Err: ErrPluginNotFound}
}

func (r *Resolver) onDisk(rel string) string {
	if r.root == "" || filepath.IsAbs(rel) {
		return filepath.FromSlash(rel)
	}
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

func enabledNames(raw config.Node) ([]string, error) {
	enabled, ok := raw.Lookup(config.SectionPlugins, "enabled")
	if !ok || enabled.IsNull() {
		return nil, nil
	}
	names, ok := enabled.AsStrings()
	if !ok {
		return nil, ErrInvalidEnabledList
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, ErrInvalidEnabledList
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}
