package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/serjche/Ceedling/internal/environment"
	"github.com/serjche/Ceedling/internal/fsglob"
	"github.com/serjche/Ceedling/pkg/config"
	"github.com/serjche/Ceedling/pkg/telemetry"
)

// Input is what a stage may read. Values is nil until the flatten stage has
// run; stages must treat both Raw and Values as read-only.
type Input struct {
	Raw         config.Node
	Values      map[string]config.Node
	Glob        fsglob.Globber
	Environment environment.Applier
	DotenvRead  environment.DotenvReader
	Logger      telemetry.StructuredLogger
}

// Get returns a flattened value.
func (in *Input) Get(key string) config.Node {
	return in.Values[key]
}

// Bool returns a flattened boolean, false when absent.
func (in *Input) Bool(key string) bool {
	b, _ := in.Values[key].AsBool()
	return b
}

// String returns a flattened scalar as a string.
func (in *Input) String(key string) string {
	s, _ := in.Values[key].AsString()
	return s
}

// Strings returns a flattened list. A single scalar is treated as a list of one.
func (in *Input) Strings(key string) []string {
	v := in.Values[key]
	if s, ok := v.AsStrings(); ok {
		return s
	}
	if s, ok := v.AsString(); ok {
		return []string{s}
	}
	return nil
}

// Contribution is a stage's partial update.
type Contribution struct {
	// Raw replaces the raw configuration; only stages before flatten use it.
	Raw *config.Node
	// Values are merged into the accumulator.
	Values map[string]config.Node
	// Remove deletes keys; only a stage with Cleans set may use it.
	Remove []string
}

// Stage is one ordered transformation step.
type Stage struct {
	Name string
	// Requires lists keys that must already be resolved.
	Requires []string
	// Provides lists keys the stage may contribute. An entry ending in "*"
	// matches a prefix; "*" alone matches anything.
	Provides []string
	// Overwrites lists keys or prefixes the stage may replace when already set.
	Overwrites []string
	// Cleans permits Contribution.Remove.
	Cleans bool
	Run    func(*Input) (Contribution, error)
}

func matchesAny(key string, patterns []string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(key, prefix) {
				return true
			}
			continue
		}
		if key == p {
			return true
		}
	}
	return false
}

// checkRequires fails on the first missing precondition key.
func (s Stage) checkRequires(values map[string]config.Node) error {
	for _, key := range s.Requires {
		if _, ok := values[key]; !ok {
			return fmt.Errorf("%w: %s requires %q", ErrStagePrecondition, s.Name, key)
		}
	}
	return nil
}

// apply merges c into values, enforcing the stage's declarations. Replacing a
// null value is not a collision.
func (s Stage) apply(values map[string]config.Node, c Contribution) error {
	if len(c.Remove) > 0 && !s.Cleans {
		return fmt.Errorf("%w: %s removes keys", ErrUndeclaredKey, s.Name)
	}
	for _, key := range sortedKeys(c.Values) {
		if !matchesAny(key, s.Provides) {
			return fmt.Errorf("%w: %s wrote %q", ErrUndeclaredKey, s.Name, key)
		}
		if existing, ok := values[key]; ok && !existing.IsNull() && !matchesAny(key, s.Overwrites) {
			return fmt.Errorf("%w: %s overwrote %q", ErrKeyCollision, s.Name, key)
		}
	}
	for key, v := range c.Values {
		values[key] = v
	}
	for _, key := range c.Remove {
		delete(values, key)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
