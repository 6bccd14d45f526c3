// Package pathutil canonicalizes path strings found in a raw configuration.
// Normalization is purely lexical; nothing is checked against the filesystem.
package pathutil

import (
	"strings"

	"github.com/serjche/Ceedling/pkg/config"
)

// Standardize rewrites a path into canonical forward-slash form: surrounding
// whitespace is trimmed, backslashes become slashes, repeated slashes collapse
// and a trailing slash is dropped unless the path is the root. Glob metacharacters
// are preserved. Standardize(Standardize(p)) == Standardize(p).
func Standardize(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// NormalizeConfig returns a copy of raw with every path-bearing field
// standardized: the build root, each entry of every list under paths, each
// tool executable, the plugins base path and the mock output path.
func NormalizeConfig(raw config.Node) config.Node {
	out := raw

	if root, ok := raw.Lookup(config.SectionProject, "build_root"); ok {
		out = out.WithPath(standardizeNode(root), config.SectionProject, "build_root")
	}

	if paths, ok := raw.Field(config.SectionPaths); ok && paths.IsMapping() {
		for _, name := range paths.Keys() {
			list, _ := paths.Field(name)
			out = out.WithPath(standardizeNode(list), config.SectionPaths, name)
		}
	}

	if tools, ok := raw.Field(config.SectionTools); ok && tools.IsMapping() {
		for _, name := range tools.Keys() {
			executable, ok := tools.Lookup(name, "executable")
			if !ok {
				continue
			}
			out = out.WithPath(standardizeNode(executable), config.SectionTools, name, "executable")
		}
	}

	if base, ok := raw.Lookup(config.SectionPlugins, "base_path"); ok {
		out = out.WithPath(standardizeNode(base), config.SectionPlugins, "base_path")
	}

	if mockPath, ok := raw.Lookup(config.SectionMock, config.MockFieldPath); ok {
		out = out.WithPath(standardizeNode(mockPath), config.SectionMock, config.MockFieldPath)
	}

	return out
}

// standardizeNode standardizes a string scalar or every string of a sequence.
// Other values are returned unchanged so validation can still report them.
func standardizeNode(n config.Node) config.Node {
	switch n.Kind() {
	case config.KindScalar:
		if s, ok := n.Value().(string); ok {
			return config.String(Standardize(s))
		}
		return n
	case config.KindSequence:
		items := n.Items()
		for i, item := range items {
			items[i] = standardizeNode(item)
		}
		return config.Sequence(items...)
	default:
		return n
	}
}
