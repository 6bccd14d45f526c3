package assembler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/serjche/Ceedling/internal/environment"
	"github.com/serjche/Ceedling/internal/fsglob"
	"github.com/serjche/Ceedling/internal/plugins"
	"github.com/serjche/Ceedling/internal/validation"
	"github.com/serjche/Ceedling/pkg/assembler"
	"github.com/serjche/Ceedling/pkg/config"
	"github.com/serjche/Ceedling/pkg/telemetry"
)

func projectFS() fstest.MapFS {
	return fstest.MapFS{
		"src/main.c":            {},
		"src/util.c":            {},
		"src/util.h":            {},
		"inc/api.h":             {},
		"test/test_main.c":      {},
		"test/unit/test_util.c": {},
		"test/unit/helper.c":    {},
	}
}

func projectConfig(t *testing.T) config.Node {
	t.Helper()
	n, err := config.FromAny(map[string]any{
		"project": map[string]any{"build_root": `build\out/`, "use_preprocessor": true},
		"paths": map[string]any{
			"test":    []any{"test/**"},
			"source":  []any{"src"},
			"include": []any{"inc"},
		},
		"tools": map[string]any{
			"test_compiler": map[string]any{"executable": "gcc", "arguments": []any{"-c", "${1}"}},
		},
		"defines":    map[string]any{"test": []any{"TEST", "UNIT"}},
		"unity":      map[string]any{"defines": []any{"UNITY_INCLUDE_DOUBLE"}},
		"mock":       map[string]any{"defines": []any{"CMOCK_MEM_STATIC"}, "mock_prefix": "Fake"},
		"cexception": map[string]any{"defines": []any{"CEXC", "TEST"}},
	})
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}
	return n
}

func newAssembler(opts assembler.Options) *assembler.Assembler {
	if opts.Glob == nil {
		opts.Glob = fsglob.New(projectFS())
	}
	return assembler.New(opts)
}

func TestAssembleResolvesProject(t *testing.T) {
	a := newAssembler(assembler.Options{})
	resolved, err := a.Assemble(context.Background(), projectConfig(t))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if got := resolved.BuildRoot(); got != "build/out" {
		t.Fatalf("expected normalized build root, got %q", got)
	}
	if got := resolved.Verbosity(); got != 3 {
		t.Fatalf("expected default verbosity 3, got %d", got)
	}

	checks := map[string][]string{
		config.KeyCollectionAllTests:        {"test/test_main.c", "test/unit/test_util.c"},
		config.KeyCollectionAllSource:       {"src/main.c", "src/util.c"},
		config.KeyCollectionAllHeaders:      {"inc/api.h", "src/util.h"},
		config.KeyCollectionTestDefines:     {"TEST", "UNIT", "UNITY_INCLUDE_DOUBLE", "CMOCK_MEM_STATIC", "CEXC"},
		config.KeyCollectionIncludePaths:    {"test", "test/unit", "src", "inc", "build/out/tests/mocks"},
		config.KeyCollectionTestSourcePaths: {"test", "test/unit", "src", "build/out/tests/mocks"},
		"collection_paths_test":             {"test", "test/unit"},
		"collection_paths_support":          {},
		config.KeyProjectRakefileFiles: {
			"lib/ceedling/tasks_base.rake", "lib/ceedling/tasks_filesystem.rake",
			"lib/ceedling/tasks_tests.rake", "lib/ceedling/rules_tests.rake", "lib/ceedling/rules_mocks.rake",
		},
		config.KeyProjectBuildPaths: {
			"build/out/logs", "build/out/temp", "build/out/test/cache", "build/out/test/dependencies",
			"build/out/test/out", "build/out/test/preprocess/files", "build/out/test/preprocess/includes",
			"build/out/test/results", "build/out/test/runners", "build/out/tests/mocks",
		},
	}
	for key, want := range checks {
		got := resolved.Strings(key)
		if got == nil {
			got = []string{}
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", key, diff)
		}
	}

	if resolved.Has(config.KeyProjectReleaseBuildOutputPath) {
		t.Errorf("release paths derived without release build")
	}
	tool, _ := resolved.Get("tools_test_compiler")
	if name, _ := tool.Lookup("name"); name.String() != "Test Compiler" {
		t.Errorf("expected injected tool name, got %q", name.String())
	}

	mock, err := a.Mock()
	if err != nil {
		t.Fatalf("Mock: %v", err)
	}
	if mock.Prefix() != "Fake" || mock.MockPath() != "build/out/tests/mocks" || !mock.EnforceStrictOrdering() {
		t.Fatalf("unexpected mock subset %s", mock.Section())
	}
}

func TestAssembleFlagDependentStages(t *testing.T) {
	const mockPath = "build/out/tests/mocks"
	tests := []struct {
		name  string
		flag  string
		value bool
		check func(t *testing.T, resolved *config.Resolved)
	}{
		{
			name:  "release build",
			flag:  "release_build",
			value: true,
			check: func(t *testing.T, resolved *config.Resolved) {
				want := map[string]string{
					config.KeyProjectReleaseBuildOutputPath: "build/out/release/out",
					config.KeyProjectReleaseArtifactsPath:   "build/out/artifacts/release",
				}
				for key, path := range want {
					if got := resolved.String(key); got != path {
						t.Errorf("%s = %q, want %q", key, got, path)
					}
					if !contains(resolved.Strings(config.KeyProjectBuildPaths), path) {
						t.Errorf("build paths missing %s", path)
					}
				}
				rakefiles := resolved.Strings(config.KeyProjectRakefileFiles)
				for _, name := range []string{"lib/ceedling/rules_release.rake", "lib/ceedling/tasks_release.rake"} {
					if !contains(rakefiles, name) {
						t.Errorf("rakefile components missing %s: %v", name, rakefiles)
					}
				}
			},
		},
		{
			name:  "mocks disabled",
			flag:  "use_mocks",
			value: false,
			check: func(t *testing.T, resolved *config.Resolved) {
				for _, key := range []string{config.KeyProjectBuildPaths, config.KeyCollectionIncludePaths, config.KeyCollectionTestSourcePaths} {
					if contains(resolved.Strings(key), mockPath) {
						t.Errorf("%s still lists the mock path: %v", key, resolved.Strings(key))
					}
				}
				if contains(resolved.Strings(config.KeyProjectRakefileFiles), "lib/ceedling/rules_mocks.rake") {
					t.Errorf("mock rules included without mocks")
				}
				if contains(resolved.Strings(config.KeyCollectionTestDefines), "CMOCK_MEM_STATIC") {
					t.Errorf("mock defines included without mocks")
				}
				if !contains(resolved.Strings(config.KeyCollectionTestDefines), "CEXC") {
					t.Errorf("exception defines dropped with mocks")
				}
			},
		},
		{
			name:  "exceptions disabled",
			flag:  "use_exceptions",
			value: false,
			check: func(t *testing.T, resolved *config.Resolved) {
				want := []string{"TEST", "UNIT", "UNITY_INCLUDE_DOUBLE", "CMOCK_MEM_STATIC"}
				if diff := cmp.Diff(want, resolved.Strings(config.KeyCollectionTestDefines)); diff != "" {
					t.Errorf("test defines (-want +got):\n%s", diff)
				}
				if !contains(resolved.Strings(config.KeyCollectionIncludePaths), mockPath) {
					t.Errorf("mock path dropped with exceptions")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := projectConfig(t).WithPath(config.Scalar(tt.value), config.SectionProject, tt.flag)
			resolved, err := newAssembler(assembler.Options{}).Assemble(context.Background(), raw)
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			tt.check(t, resolved)
		})
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func TestAssembleIsDeterministic(t *testing.T) {
	first, err := newAssembler(assembler.Options{}).Assemble(context.Background(), projectConfig(t))
	if err != nil {
		t.Fatalf("first Assemble: %v", err)
	}
	second, err := newAssembler(assembler.Options{}).Assemble(context.Background(), projectConfig(t))
	if err != nil {
		t.Fatalf("second Assemble: %v", err)
	}

	a, _ := config.FormatSummary(first, config.SummaryFormatJSON)
	b, _ := config.FormatSummary(second, config.SummaryFormatJSON)
	if a != b {
		t.Fatalf("resolved configurations differ:\n%s", cmp.Diff(a, b))
	}
}

func TestSetVerbosityUpdatesProjectAndMock(t *testing.T) {
	a := newAssembler(assembler.Options{})
	if err := a.SetVerbosity(4); err != nil {
		t.Fatalf("SetVerbosity: %v", err)
	}
	resolved, err := a.Assemble(context.Background(), projectConfig(t))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	mock, _ := a.Mock()
	level, ok := mock.Verbosity()
	if resolved.Verbosity() != 4 || !ok || level != 4 {
		t.Fatalf("expected verbosity 4 for project and mock, got %d and %d (set=%v)", resolved.Verbosity(), level, ok)
	}
}

func TestSetVerbosityRejectsInvalidAndLateCalls(t *testing.T) {
	a := newAssembler(assembler.Options{})
	if err := a.SetVerbosity(6); !errors.Is(err, assembler.ErrInvalidVerbosity) {
		t.Fatalf("expected ErrInvalidVerbosity, got %v", err)
	}
	if _, err := a.Assemble(context.Background(), projectConfig(t)); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if err := a.SetVerbosity(2); !errors.Is(err, assembler.ErrAlreadyAssembled) {
		t.Fatalf("expected ErrAlreadyAssembled, got %v", err)
	}
	if _, err := a.Assemble(context.Background(), projectConfig(t)); !errors.Is(err, assembler.ErrAlreadyAssembled) {
		t.Fatalf("expected second Assemble to fail, got %v", err)
	}
}

func TestParseVerbosity(t *testing.T) {
	if level, err := assembler.ParseVerbosity("5"); err != nil || level != 5 {
		t.Fatalf("ParseVerbosity(5) = %d, %v", level, err)
	}
	for _, bad := range []string{"-1", "9", "loud"} {
		if _, err := assembler.ParseVerbosity(bad); !errors.Is(err, assembler.ErrInvalidVerbosity) {
			t.Fatalf("ParseVerbosity(%q) expected ErrInvalidVerbosity, got %v", bad, err)
		}
	}
}

func TestInsertRakePluginsOnlyExtendsComponents(t *testing.T) {
	root := t.TempDir()
	rake := filepath.Join(root, "vendor", "plugins", "report", "report.rake")
	if err := os.MkdirAll(filepath.Dir(rake), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(rake, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw := projectConfig(t).With("plugins", config.Mapping(map[string]config.Node{
		"base_path": config.String("vendor/plugins"),
		"enabled":   config.Strings("report"),
	}))
	a := newAssembler(assembler.Options{Plugins: plugins.NewResolver(plugins.Options{Root: root})})
	if err := a.InsertRakePlugins(); !errors.Is(err, assembler.ErrNotAssembled) {
		t.Fatalf("expected ErrNotAssembled before assembly, got %v", err)
	}

	resolved, err := a.Assemble(context.Background(), raw)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	before := resolved.All()

	if err := a.InsertRakePlugins(); err != nil {
		t.Fatalf("InsertRakePlugins: %v", err)
	}
	after := resolved.All()

	components := resolved.RakefileComponents()
	if components[len(components)-1] != "vendor/plugins/report/report.rake" {
		t.Fatalf("expected rake plugin appended, got %v", components)
	}
	if len(components) != before[config.KeyProjectRakefileFiles].Len()+1 {
		t.Fatalf("expected exactly one component appended, got %v", components)
	}
	delete(before, config.KeyProjectRakefileFiles)
	delete(after, config.KeyProjectRakefileFiles)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("append changed other keys (-before +after):\n%s", diff)
	}
}

func TestAssembleReportsEmptyGlobs(t *testing.T) {
	raw := projectConfig(t).WithPath(config.Strings("test/**", "mocks/**", "fixtures/*"), "paths", "support")

	a := newAssembler(assembler.Options{})
	_, err := a.Assemble(context.Background(), raw)
	if !errors.Is(err, assembler.ErrGlobExpansion) {
		t.Fatalf("expected ErrGlobExpansion, got %v", err)
	}
	var globErr *assembler.GlobError
	if !errors.As(err, &globErr) {
		t.Fatalf("expected GlobError, got %T", err)
	}
	want := []string{"mocks/**", "fixtures/*"}
	if diff := cmp.Diff(want, globErr.Patterns["collection_paths_support"]); diff != "" {
		t.Fatalf("unexpected empty patterns (-want +got):\n%s", diff)
	}
	var stageErr *assembler.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != assembler.StageExpandGlobs || stageErr.Index != 15 {
		t.Fatalf("expected failure attributed to stage 15, got %v", err)
	}
	if _, err := a.Resolved(); !errors.Is(err, assembler.ErrNotAssembled) {
		t.Fatalf("expected nothing kept after failure, got %v", err)
	}
}

func TestAssembleStopsOnFatalValidation(t *testing.T) {
	raw := projectConfig(t).Without("tools")

	_, err := newAssembler(assembler.Options{}).Assemble(context.Background(), raw)
	if !errors.Is(err, validation.ErrMissingRequiredSection) {
		t.Fatalf("expected missing section, got %v", err)
	}
}

func TestAssembleAppliesEnvironment(t *testing.T) {
	raw := projectConfig(t).With("environment", config.Sequence(
		config.Mapping(map[string]config.Node{"license_key": config.String("abc")}),
		config.String("toolchain.env"),
	))

	var applied environment.Declarations
	var logs bytes.Buffer
	logger, _ := telemetry.NewLogger(&logs, "env-test")
	a := newAssembler(assembler.Options{
		Logger: logger,
		Environment: environment.ApplierFunc(func(d environment.Declarations) error {
			applied = d
			return nil
		}),
		DotenvRead: func(path string) (map[string]string, error) {
			return map[string]string{"ARCH": "arm"}, nil
		},
	})
	resolved, err := a.Assemble(context.Background(), raw)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if diff := cmp.Diff(map[string]string{"LICENSE_KEY": "abc", "ARCH": "arm"}, applied.Map()); diff != "" {
		t.Fatalf("unexpected declarations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"toolchain.env"}, resolved.EnvironmentDependencies()); diff != "" {
		t.Fatalf("unexpected environment dependencies (-want +got):\n%s", diff)
	}
	if bytes.Contains(logs.Bytes(), []byte(`"abc"`)) {
		t.Fatalf("secret leaked into logs:\n%s", logs.String())
	}
}

func TestAssembleEmitsPhasesInOrder(t *testing.T) {
	var buf bytes.Buffer
	a := newAssembler(assembler.Options{Emitter: telemetry.NewEmitter(&buf)})
	if _, err := a.Assemble(context.Background(), projectConfig(t)); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	var phases []telemetry.Phase
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var ev telemetry.Event
		if err := dec.Decode(&ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.Outcome == "success" {
			phases = append(phases, ev.Phase)
		}
	}
	want := []telemetry.Phase{telemetry.PhasePlugins, telemetry.PhaseValidate, telemetry.PhaseNormalize, telemetry.PhaseDefaults, telemetry.PhaseBuild}
	if diff := cmp.Diff(want, phases); diff != "" {
		t.Fatalf("unexpected phases (-want +got):\n%s", diff)
	}
}
