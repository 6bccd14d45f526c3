package defaults_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/serjche/Ceedling/internal/defaults"
	"github.com/serjche/Ceedling/pkg/config"
)

func mustNode(t *testing.T, v any) config.Node {
	t.Helper()
	n, err := config.FromAny(v)
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}
	return n
}

func TestPopulatePluginsCreatesSection(t *testing.T) {
	out := defaults.PopulatePlugins(mustNode(t, map[string]any{"project": map[string]any{}}))

	base, _ := out.Lookup("plugins", "base_path")
	if s, _ := base.AsString(); s != "." {
		t.Fatalf("expected base_path '.', got %q", s)
	}
	enabled, _ := out.Lookup("plugins", "enabled")
	if !enabled.IsSequence() || enabled.Len() != 0 {
		t.Fatalf("expected empty enabled list, got %s", enabled)
	}
}

func TestPopulatePluginsEmptySection(t *testing.T) {
	out := defaults.PopulatePlugins(mustNode(t, map[string]any{"plugins": map[string]any{}}))
	want := mustNode(t, map[string]any{"plugins": map[string]any{"base_path": ".", "enabled": []any{}}})
	if !out.Equal(want) {
		t.Fatalf("unexpected plugins section: %s", out)
	}
}

func TestPopulatePluginsKeepsAuthoredBasePath(t *testing.T) {
	out := defaults.PopulatePlugins(mustNode(t, map[string]any{"plugins": map[string]any{"base_path": "x"}}))

	base, _ := out.Lookup("plugins", "base_path")
	if s, _ := base.AsString(); s != "x" {
		t.Fatalf("expected base_path to remain x, got %q", s)
	}
	enabled, _ := out.Lookup("plugins", "enabled")
	if enabled.Len() != 0 || !enabled.IsSequence() {
		t.Fatalf("expected enabled to default to [], got %s", enabled)
	}
}

func TestPopulatePluginsIsIdempotent(t *testing.T) {
	once := defaults.PopulatePlugins(mustNode(t, map[string]any{"plugins": map[string]any{"enabled": []any{"gcov"}}}))
	twice := defaults.PopulatePlugins(once)
	if !once.Equal(twice) {
		t.Fatalf("second run changed config: %s vs %s", once, twice)
	}
}

func TestPopulateMockDefaults(t *testing.T) {
	raw := mustNode(t, map[string]any{
		"project": map[string]any{"build_root": "/out", "verbosity": 2},
		"mock":    map[string]any{"plugins": []any{"ignore"}},
	})

	out, mock := defaults.PopulateMock(raw)

	if mock.Prefix() != "Mock" {
		t.Fatalf("expected prefix Mock, got %q", mock.Prefix())
	}
	if !mock.EnforceStrictOrdering() {
		t.Fatalf("expected strict ordering default true")
	}
	if mock.MockPath() != "/out/tests/mocks" {
		t.Fatalf("expected mock path /out/tests/mocks, got %q", mock.MockPath())
	}
	if v, ok := mock.Verbosity(); !ok || v != 2 {
		t.Fatalf("expected inherited verbosity 2, got %d (%t)", v, ok)
	}
	if _, ok := mock.Option("plugins"); !ok {
		t.Fatalf("expected unrelated mock option to survive")
	}

	section, _ := out.Field("mock")
	if diff := cmp.Diff(mock.Section().Interface(), section.Interface()); diff != "" {
		t.Fatalf("snapshot differs from raw section (-snapshot +raw):\n%s", diff)
	}
}

func TestPopulateMockKeepsExplicitValues(t *testing.T) {
	raw := mustNode(t, map[string]any{
		"project": map[string]any{"build_root": "/out", "verbosity": 4},
		"mock": map[string]any{
			"mock_prefix":             "Fake",
			"enforce_strict_ordering": false,
			"mock_path":               "gen/mocks",
			"verbosity":               1,
		},
	})

	_, mock := defaults.PopulateMock(raw)

	if mock.Prefix() != "Fake" || mock.EnforceStrictOrdering() || mock.MockPath() != "gen/mocks" {
		t.Fatalf("explicit values overwritten: %s", mock.Section())
	}
	if v, _ := mock.Verbosity(); v != 1 {
		t.Fatalf("expected explicit verbosity 1, got %d", v)
	}
}

func TestPopulateMockWithoutProjectVerbosity(t *testing.T) {
	raw := mustNode(t, map[string]any{"project": map[string]any{"build_root": "build"}})

	out, mock := defaults.PopulateMock(raw)
	if _, ok := mock.Verbosity(); ok {
		t.Fatalf("verbosity should stay unset when project has none")
	}

	again, _ := defaults.PopulateMock(out)
	if !again.Equal(out) {
		t.Fatalf("PopulateMock is not idempotent")
	}
}
