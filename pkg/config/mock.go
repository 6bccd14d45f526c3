package config

// Fields of the mock section handed to the mock generator.
const (
	MockFieldPrefix         = "mock_prefix"
	MockFieldStrictOrdering = "enforce_strict_ordering"
	MockFieldPath           = "mock_path"
	MockFieldVerbosity      = "verbosity"
)

// MockConfig is the frozen snapshot of the mock section. It is built once per
// build invocation and exposes read-only accessors.
type MockConfig struct {
	section Node
}

// NewMockConfig snapshots the provided mock section.
func NewMockConfig(section Node) MockConfig {
	if !section.IsMapping() {
		section = Mapping(nil)
	}
	return MockConfig{section: section}
}

// Prefix returns the mock name prefix.
func (m MockConfig) Prefix() string {
	v, _ := m.section.Field(MockFieldPrefix)
	s, _ := v.AsString()
	return s
}

// EnforceStrictOrdering reports whether mocks verify call order.
func (m MockConfig) EnforceStrictOrdering() bool {
	v, _ := m.section.Field(MockFieldStrictOrdering)
	b, _ := v.AsBool()
	return b
}

// MockPath returns the directory generated mocks are written to.
func (m MockConfig) MockPath() string {
	v, _ := m.section.Field(MockFieldPath)
	s, _ := v.AsString()
	return s
}

// Verbosity returns the mock generator verbosity and whether one was set.
func (m MockConfig) Verbosity() (int, bool) {
	v, ok := m.section.Field(MockFieldVerbosity)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// Option returns any other field of the mock section.
func (m MockConfig) Option(name string) (Node, bool) {
	return m.section.Field(name)
}

// Section returns the whole snapshot as a node.
func (m MockConfig) Section() Node {
	return m.section
}
