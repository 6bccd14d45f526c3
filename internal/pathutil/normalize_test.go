package pathutil_test

import (
	"testing"

	"github.com/serjche/Ceedling/internal/pathutil"
	"github.com/serjche/Ceedling/pkg/config"
)

func TestStandardize(t *testing.T) {
	cases := map[string]string{
		"build":             "build",
		"build/":            "build",
		`src\\lib\`:         "src/lib",
		"  test//unit///  ": "test/unit",
		"/":                 "/",
		"//":                "/",
		`C:\work\proj`:      "C:/work/proj",
		"src/**/*.c":        "src/**/*.c",
		"":                  "",
		"./vendor/./unity/": "./vendor/./unity",
	}
	for in, want := range cases {
		if got := pathutil.Standardize(in); got != want {
			t.Fatalf("Standardize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStandardizeIsIdempotent(t *testing.T) {
	inputs := []string{`a\\b\c\`, "x//y/", " /tmp/ ", "rel/../dir", `\\server\share`, "glob/**/"}
	for _, in := range inputs {
		once := pathutil.Standardize(in)
		twice := pathutil.Standardize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeConfigRewritesPathBearingFields(t *testing.T) {
	raw, err := config.FromAny(map[string]any{
		"project": map[string]any{"build_root": `build\out\`, "verbosity": 3},
		"paths": map[string]any{
			"test":   []any{`test\unit\`, "test//int"},
			"source": []any{"src/"},
		},
		"tools": map[string]any{
			"test_compiler": map[string]any{"executable": `C:\tools\gcc.exe`, "arguments": []any{"-c"}},
		},
		"plugins": map[string]any{"base_path": `plugins\`},
		"mock":    map[string]any{"mock_path": "build//mocks/"},
	})
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}

	out := pathutil.NormalizeConfig(raw)

	checks := []struct {
		path []string
		want string
	}{
		{[]string{"project", "build_root"}, "build/out"},
		{[]string{"tools", "test_compiler", "executable"}, "C:/tools/gcc.exe"},
		{[]string{"plugins", "base_path"}, "plugins"},
		{[]string{"mock", "mock_path"}, "build/mocks"},
	}
	for _, c := range checks {
		n, _ := out.Lookup(c.path...)
		if got, _ := n.AsString(); got != c.want {
			t.Fatalf("%v = %q, want %q", c.path, got, c.want)
		}
	}

	tests, _ := out.Lookup("paths", "test")
	got, _ := tests.AsStrings()
	if len(got) != 2 || got[0] != "test/unit" || got[1] != "test/int" {
		t.Fatalf("unexpected test paths %v", got)
	}

	if again := pathutil.NormalizeConfig(out); !again.Equal(out) {
		t.Fatalf("NormalizeConfig is not idempotent")
	}

	if orig, _ := raw.Lookup("project", "build_root"); orig.String() != `build\out\` {
		t.Fatalf("input was mutated: %s", orig)
	}
}
