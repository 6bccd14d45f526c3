package config

import (
	"sort"
	"sync"
)

// Resolved is the fully assembled configuration handed to build consumers.
// After assembly it is read-only except for AppendRakeComponents. All methods
// are safe for concurrent use.
type Resolved struct {
	mu     sync.RWMutex
	values map[string]Node
}

// NewResolved wraps a flat key/value set. The map is copied.
func NewResolved(values map[string]Node) *Resolved {
	out := make(map[string]Node, len(values))
	for k, v := range values {
		out[k] = v
	}
	return &Resolved{values: out}
}

// Get returns the value stored under key.
func (r *Resolved) Get(key string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Resolved) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// String returns a scalar value as a string, or "" when absent.
func (r *Resolved) String(key string) string {
	v, _ := r.Get(key)
	s, _ := v.AsString()
	return s
}

// Strings returns a sequence value as strings, or nil when absent.
func (r *Resolved) Strings(key string) []string {
	v, _ := r.Get(key)
	s, _ := v.AsStrings()
	return s
}

// Bool returns a boolean value, false when absent.
func (r *Resolved) Bool(key string) bool {
	v, _ := r.Get(key)
	b, _ := v.AsBool()
	return b
}

// Int returns an integer value, zero when absent.
func (r *Resolved) Int(key string) int {
	v, _ := r.Get(key)
	i, _ := v.AsInt()
	return i
}

// Keys returns every resolved key in sorted order.
func (r *Resolved) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns a copy of the full key/value set.
func (r *Resolved) All() map[string]Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Node, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Len returns the number of resolved keys.
func (r *Resolved) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

// AppendRakeComponents appends late-registered rake plugin component files to
// the orchestrator component list. No other key is touched.
func (r *Resolved) AppendRakeComponents(files ...string) {
	if len(files) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.values[KeyProjectRakefileFiles]
	r.values[KeyProjectRakefileFiles] = current.Append(Strings(files...).Items()...)
}

// BuildRoot returns the top-level build output directory.
func (r *Resolved) BuildRoot() string { return r.String(KeyProjectBuildRoot) }

// Verbosity returns the project verbosity level.
func (r *Resolved) Verbosity() int { return r.Int(KeyProjectVerbosity) }

// RakefileComponents returns the orchestrator component files.
func (r *Resolved) RakefileComponents() []string { return r.Strings(KeyProjectRakefileFiles) }

// TestFiles returns the collected test sources.
func (r *Resolved) TestFiles() []string { return r.Strings(KeyCollectionAllTests) }

// SourceFiles returns the collected sources.
func (r *Resolved) SourceFiles() []string { return r.Strings(KeyCollectionAllSource) }

// HeaderFiles returns the collected headers.
func (r *Resolved) HeaderFiles() []string { return r.Strings(KeyCollectionAllHeaders) }

// IncludePaths returns the combined include search paths.
func (r *Resolved) IncludePaths() []string { return r.Strings(KeyCollectionIncludePaths) }

// TestDefines returns preprocessor symbols for test builds.
func (r *Resolved) TestDefines() []string { return r.Strings(KeyCollectionTestDefines) }

// EnvironmentDependencies returns files the environment was derived from.
func (r *Resolved) EnvironmentDependencies() []string {
	return r.Strings(KeyCollectionEnvDependencies)
}
