package environment_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/serjche/Ceedling/internal/environment"
	"github.com/serjche/Ceedling/pkg/config"
)

func TestCollectInlineAndDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "toolchain.env")
	if err := os.WriteFile(envFile, []byte("CC_HOME=/opt/cc\nARCH=arm\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	section, err := config.FromAny([]any{
		map[string]any{"license_server": "lic.example:2700"},
		map[string]any{"path": []any{"/opt/cc/bin", ":", "$PATH"}},
		envFile,
	})
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}

	decls, err := environment.Collect(section, nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := []environment.Declaration{
		{Name: "LICENSE_SERVER", Value: "lic.example:2700", Source: environment.SourceInline},
		{Name: "PATH", Value: "/opt/cc/bin : $PATH", Source: environment.SourceInline},
		{Name: "ARCH", Value: "arm", Source: envFile},
		{Name: "CC_HOME", Value: "/opt/cc", Source: envFile},
	}
	if diff := cmp.Diff(want, decls.Vars); diff != "" {
		t.Fatalf("unexpected declarations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{envFile}, decls.Files); diff != "" {
		t.Fatalf("unexpected files (-want +got):\n%s", diff)
	}
	if got := environment.Files(section); len(got) != 1 || got[0] != envFile {
		t.Fatalf("Files() = %v", got)
	}
}

func TestCollectRejectsNestedSequence(t *testing.T) {
	section, _ := config.FromAny([]any{[]any{"x"}})
	_, err := environment.Collect(section, nil)
	if !errors.Is(err, environment.ErrInvalidDeclaration) {
		t.Fatalf("expected ErrInvalidDeclaration, got %v", err)
	}
}

func TestCollectMissingDotenv(t *testing.T) {
	section := config.Strings("missing.env")
	_, err := environment.Collect(section, func(string) (map[string]string, error) {
		return nil, os.ErrNotExist
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestProcessApplierExpandsValues(t *testing.T) {
	t.Setenv("CEEDLING_TEST_BASE", "/base")
	got := map[string]string{}
	applier := environment.ProcessApplier{Setenv: func(k, v string) error {
		got[k] = v
		return nil
	}}

	err := applier.Apply(environment.Declarations{Vars: []environment.Declaration{
		{Name: "TOOL_DIR", Value: "${CEEDLING_TEST_BASE}/bin"},
	}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got["TOOL_DIR"] != "/base/bin" {
		t.Fatalf("expected expanded value, got %q", got["TOOL_DIR"])
	}
}

func TestReadDotenvFromResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "build.env"), []byte("ARCH=arm\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	chdirForTest(t, t.TempDir())

	read := environment.ReadDotenvFrom(dir, nil)
	vars, err := read("build.env")
	if err != nil {
		t.Fatalf("read relative dotenv: %v", err)
	}
	if vars["ARCH"] != "arm" {
		t.Fatalf("unexpected vars %v", vars)
	}

	var seen string
	read = environment.ReadDotenvFrom(dir, func(path string) (map[string]string, error) {
		seen = path
		return nil, nil
	})
	abs := filepath.Join(t.TempDir(), "abs.env")
	if _, err := read(abs); err != nil {
		t.Fatalf("read absolute dotenv: %v", err)
	}
	if seen != abs {
		t.Fatalf("absolute path rewritten to %q", seen)
	}
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
