// Package defaults fills optional raw configuration fields that later phases
// rely on. Every function is idempotent and returns a new node.
package defaults

import (
	"path"

	"github.com/serjche/Ceedling/pkg/config"
)

// Default values applied to the plugins and mock sections.
const (
	PluginsBasePath       = "."
	MockPrefix            = "Mock"
	MockStrictOrdering    = true
	MockPathFromBuildRoot = "tests/mocks"
)

// PopulatePlugins ensures the plugins section exists with base_path and
// enabled set. Only missing sub-fields are filled.
func PopulatePlugins(raw config.Node) config.Node {
	plugins, ok := raw.Field(config.SectionPlugins)
	if !ok || !plugins.IsMapping() {
		plugins = config.Mapping(nil)
	}
	if !plugins.Has("base_path") {
		plugins = plugins.With("base_path", config.String(PluginsBasePath))
	}
	if !plugins.Has("enabled") {
		plugins = plugins.With("enabled", config.Strings())
	}
	return raw.With(config.SectionPlugins, plugins)
}

// PopulateMock fills the mock section from the project settings and returns the
// updated configuration together with the frozen snapshot for the mock
// generator. Explicitly authored values are kept; verbosity is only inherited
// when the project declares one.
func PopulateMock(raw config.Node) (config.Node, config.MockConfig) {
	mock, ok := raw.Field(config.SectionMock)
	if !ok || !mock.IsMapping() {
		mock = config.Mapping(nil)
	}

	if !mock.Has(config.MockFieldPrefix) {
		mock = mock.With(config.MockFieldPrefix, config.String(MockPrefix))
	}
	if !mock.Has(config.MockFieldStrictOrdering) {
		mock = mock.With(config.MockFieldStrictOrdering, config.Scalar(MockStrictOrdering))
	}
	if !mock.Has(config.MockFieldPath) {
		root, _ := raw.Lookup(config.SectionProject, "build_root")
		if buildRoot, ok := root.AsString(); ok {
			mock = mock.With(config.MockFieldPath, config.String(path.Join(buildRoot, MockPathFromBuildRoot)))
		}
	}
	if !mock.Has(config.MockFieldVerbosity) {
		if verbosity, ok := raw.Lookup(config.SectionProject, "verbosity"); ok && !verbosity.IsNull() {
			mock = mock.With(config.MockFieldVerbosity, verbosity)
		}
	}

	return raw.With(config.SectionMock, mock), config.NewMockConfig(mock)
}
