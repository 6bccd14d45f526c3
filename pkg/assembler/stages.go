package assembler

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/serjche/Ceedling/internal/cli/logging"
	"github.com/serjche/Ceedling/internal/environment"
	"github.com/serjche/Ceedling/internal/fsglob"
	"github.com/serjche/Ceedling/pkg/config"
	"github.com/serjche/Ceedling/pkg/telemetry"
)

// Stage names in execution order.
const (
	StageToolNames    = "tool-names"
	StageEnvironment  = "environment"
	StageFlatten      = "flatten"
	StageDefaults     = "defaults"
	StageClean        = "clean"
	StageBuildPaths   = "build-paths"
	StageRakefile     = "rakefile-components"
	StageIncludePaths = "include-paths"
	StageTestSource   = "test-source-paths"
	StageTests        = "tests"
	StageSource       = "source"
	StageHeaders      = "headers"
	StageDefines      = "defines"
	StageEnvDeps      = "environment-dependencies"
	StageExpandGlobs  = "expand-globs"
)

// DefaultComponentsRoot is where orchestrator component files live.
const DefaultComponentsRoot = "lib/ceedling"

// flatDefaults are filled by the defaults stage when absent or null.
var flatDefaults = map[string]config.Node{
	config.KeyProjectUseExceptions:   config.Scalar(true),
	config.KeyProjectUseMocks:        config.Scalar(true),
	config.KeyProjectUsePreprocessor: config.Scalar(false),
	config.KeyProjectReleaseBuild:    config.Scalar(false),
	config.KeyProjectTestFilePrefix:  config.String("test_"),
	config.KeyProjectVerbosity:       config.Scalar(3),
	config.KeyPathsSupport:           config.Strings(),
	config.KeyPathsInclude:           config.Strings(),
	config.KeyDefinesTest:            config.Strings(),
	config.KeyUnityDefines:           config.Strings(),
	config.KeyCExceptionDefines:      config.Strings(),
	config.KeyMockDefines:            config.Strings(),
	config.KeyExtensionHeader:        config.String(".h"),
	config.KeyExtensionSource:        config.String(".c"),
	"extension_object":               config.String(".o"),
	"extension_executable":           config.String(".out"),
	"extension_testpass":             config.String(".pass"),
	"extension_testfail":             config.String(".fail"),
	"extension_dependencies":         config.String(".d"),
	config.KeyTestRunnerSuffix:       config.String("_runner"),
	config.KeyEnvironment:            config.Strings(),
}

// Pipeline returns the stages in their required order. The slice is fresh on
// every call.
func Pipeline(componentsRoot string) []Stage {
	if componentsRoot == "" {
		componentsRoot = DefaultComponentsRoot
	}
	return []Stage{
		{Name: StageToolNames, Run: injectToolNames},
		{Name: StageEnvironment, Run: applyEnvironment},
		{Name: StageFlatten, Provides: []string{"*"}, Run: flatten},
		{Name: StageDefaults, Provides: sortedKeys(flatDefaults), Run: populateFlatDefaults},
		{Name: StageClean, Cleans: true, Run: clean},
		{
			Name:     StageBuildPaths,
			Requires: []string{config.KeyProjectBuildRoot, config.KeyProjectUsePreprocessor, config.KeyProjectReleaseBuild, config.KeyProjectUseMocks},
			Provides: []string{
				config.KeyProjectTestBuildOutputPath, config.KeyProjectTestResultsPath,
				config.KeyProjectTestBuildCachePath, config.KeyProjectTestDependenciesPath,
				config.KeyProjectTestRunnersPath, config.KeyProjectLogPath, config.KeyProjectTempPath,
				config.KeyProjectTestPreprocessIncludes, config.KeyProjectTestPreprocessFiles,
				config.KeyProjectReleaseBuildOutputPath, config.KeyProjectReleaseArtifactsPath,
				config.KeyProjectBuildPaths,
			},
			Run: buildPaths,
		},
		{
			Name:     StageRakefile,
			Requires: []string{config.KeyProjectUseMocks, config.KeyProjectReleaseBuild},
			Provides: []string{config.KeyProjectRakefileFiles},
			Run:      rakefileComponents(componentsRoot),
		},
		{
			Name:     StageIncludePaths,
			Requires: []string{config.KeyPathsTest, config.KeyPathsSupport, config.KeyPathsSource, config.KeyPathsInclude, config.KeyProjectUseMocks},
			Provides: []string{config.KeyCollectionIncludePaths},
			Run:      includePaths,
		},
		{
			Name:     StageTestSource,
			Requires: []string{config.KeyPathsTest, config.KeyPathsSupport, config.KeyPathsSource, config.KeyProjectUseMocks},
			Provides: []string{config.KeyCollectionTestSourcePaths},
			Run:      testAndSourcePaths,
		},
		{
			Name:     StageTests,
			Requires: []string{config.KeyPathsTest, config.KeyProjectTestFilePrefix, config.KeyExtensionSource},
			Provides: []string{config.KeyCollectionAllTests},
			Run:      collectTests,
		},
		{
			Name:     StageSource,
			Requires: []string{config.KeyPathsSource, config.KeyExtensionSource},
			Provides: []string{config.KeyCollectionAllSource},
			Run:      collectSource,
		},
		{
			Name:     StageHeaders,
			Requires: []string{config.KeyCollectionIncludePaths, config.KeyExtensionHeader},
			Provides: []string{config.KeyCollectionAllHeaders},
			Run:      collectHeaders,
		},
		{
			Name: StageDefines,
			Requires: []string{
				config.KeyDefinesTest, config.KeyUnityDefines, config.KeyMockDefines,
				config.KeyCExceptionDefines, config.KeyProjectUseMocks, config.KeyProjectUseExceptions,
			},
			Provides: []string{config.KeyCollectionTestDefines},
			Run:      collectDefines,
		},
		{
			Name:     StageEnvDeps,
			Requires: []string{config.KeyEnvironment},
			Provides: []string{config.KeyCollectionEnvDependencies},
			Run:      collectEnvironmentDependencies,
		},
		{
			Name: StageExpandGlobs,
			Requires: []string{
				config.KeyCollectionIncludePaths, config.KeyCollectionTestSourcePaths,
				config.KeyCollectionAllTests, config.KeyCollectionAllSource, config.KeyCollectionAllHeaders,
				config.KeyCollectionTestDefines, config.KeyCollectionEnvDependencies,
			},
			Provides:   []string{config.PrefixCollectionPaths + "*"},
			Overwrites: []string{config.PrefixCollectionPaths + "*"},
			Run:        expandPathGlobs,
		},
	}
}

var displayTitle = cases.Title(language.English)

// injectToolNames gives every tool without a name a readable one derived from
// its key, e.g. test_compiler becomes "Test Compiler".
func injectToolNames(in *Input) (Contribution, error) {
	tools, ok := in.Raw.Field(config.SectionTools)
	if !ok || !tools.IsMapping() {
		return Contribution{}, nil
	}
	for _, key := range tools.Keys() {
		tool, _ := tools.Field(key)
		if !tool.IsMapping() {
			continue
		}
		if !tool.Has("name") {
			tool = tool.With("name", config.String(displayTitle.String(strings.ReplaceAll(key, "_", " "))))
			tools = tools.With(key, tool)
		}
		exe, _ := tool.Field("executable")
		args, _ := tool.Field("arguments")
		line := []string{exe.String()}
		if argList, ok := args.AsStrings(); ok {
			line = append(line, argList...)
		}
		_ = in.Logger.Emit(telemetry.Entry{
			Category: telemetry.CategoryStage,
			Message:  "tool configured",
			Stage:    StageToolNames,
			Metadata: map[string]string{"tool": key, "command": logging.SanitizeCommand(line)},
		})
	}
	raw := in.Raw.With(config.SectionTools, tools)
	return Contribution{Raw: &raw}, nil
}

func applyEnvironment(in *Input) (Contribution, error) {
	section, _ := in.Raw.Field(config.SectionEnvironment)
	decls, err := environment.Collect(section, in.DotenvRead)
	if err != nil {
		return Contribution{}, err
	}
	if len(decls.Vars) == 0 {
		return Contribution{}, nil
	}
	if err := in.Environment.Apply(decls); err != nil {
		return Contribution{}, fmt.Errorf("apply environment: %w", err)
	}
	metadata := logging.SanitizeEnv(decls.Map())
	_ = in.Logger.Emit(telemetry.Entry{
		Category: telemetry.CategoryStage,
		Message:  "environment applied",
		Stage:    StageEnvironment,
		Metadata: metadata,
	})
	return Contribution{}, nil
}

// flatten turns section S with sub-key k into key "S_k"; a top-level value
// that is not a mapping keeps its own name.
func flatten(in *Input) (Contribution, error) {
	out := map[string]config.Node{}
	for _, section := range in.Raw.Keys() {
		value, _ := in.Raw.Field(section)
		if !value.IsMapping() {
			if _, dup := out[section]; dup {
				return Contribution{}, fmt.Errorf("%w: %q produced twice while flattening", ErrKeyCollision, section)
			}
			out[section] = value
			continue
		}
		for _, sub := range value.Keys() {
			key := section + "_" + sub
			if _, dup := out[key]; dup {
				return Contribution{}, fmt.Errorf("%w: %q produced twice while flattening", ErrKeyCollision, key)
			}
			out[key], _ = value.Field(sub)
		}
	}
	return Contribution{Values: out}, nil
}

func populateFlatDefaults(in *Input) (Contribution, error) {
	out := map[string]config.Node{}
	for key, def := range flatDefaults {
		if v, ok := in.Values[key]; !ok || v.IsNull() {
			out[key] = def
		}
	}
	return Contribution{Values: out}, nil
}

func clean(in *Input) (Contribution, error) {
	var remove []string
	for _, key := range sortedKeys(in.Values) {
		if in.Values[key].IsNull() {
			remove = append(remove, key)
		}
	}
	return Contribution{Remove: remove}, nil
}

func buildPaths(in *Input) (Contribution, error) {
	root := in.String(config.KeyProjectBuildRoot)
	out := map[string]config.Node{
		config.KeyProjectTestBuildOutputPath:  config.String(path.Join(root, "test", "out")),
		config.KeyProjectTestResultsPath:      config.String(path.Join(root, "test", "results")),
		config.KeyProjectTestBuildCachePath:   config.String(path.Join(root, "test", "cache")),
		config.KeyProjectTestDependenciesPath: config.String(path.Join(root, "test", "dependencies")),
		config.KeyProjectTestRunnersPath:      config.String(path.Join(root, "test", "runners")),
		config.KeyProjectLogPath:              config.String(path.Join(root, "logs")),
		config.KeyProjectTempPath:             config.String(path.Join(root, "temp")),
	}
	if in.Bool(config.KeyProjectUsePreprocessor) {
		out[config.KeyProjectTestPreprocessIncludes] = config.String(path.Join(root, "test", "preprocess", "includes"))
		out[config.KeyProjectTestPreprocessFiles] = config.String(path.Join(root, "test", "preprocess", "files"))
	}
	if in.Bool(config.KeyProjectReleaseBuild) {
		out[config.KeyProjectReleaseBuildOutputPath] = config.String(path.Join(root, "release", "out"))
		out[config.KeyProjectReleaseArtifactsPath] = config.String(path.Join(root, "artifacts", "release"))
	}

	all := make([]string, 0, len(out)+1)
	for _, v := range out {
		s, _ := v.AsString()
		all = append(all, s)
	}
	if in.Bool(config.KeyProjectUseMocks) {
		if mockPath := in.String(config.KeyMockPath); mockPath != "" {
			all = append(all, mockPath)
		}
	}
	out[config.KeyProjectBuildPaths] = config.Strings(sortedUnique(all)...)
	return Contribution{Values: out}, nil
}

func rakefileComponents(root string) func(*Input) (Contribution, error) {
	return func(in *Input) (Contribution, error) {
		names := []string{"tasks_base.rake", "tasks_filesystem.rake", "tasks_tests.rake", "rules_tests.rake"}
		if in.Bool(config.KeyProjectUseMocks) {
			names = append(names, "rules_mocks.rake")
		}
		if in.Bool(config.KeyProjectReleaseBuild) {
			names = append(names, "rules_release.rake", "tasks_release.rake")
		}
		files := make([]string, len(names))
		for i, name := range names {
			files[i] = path.Join(root, name)
		}
		return Contribution{Values: map[string]config.Node{config.KeyProjectRakefileFiles: config.Strings(files...)}}, nil
	}
}

// withMockPath appends the mock output directory when mocks are enabled.
func withMockPath(in *Input, paths []string) ([]string, error) {
	if !in.Bool(config.KeyProjectUseMocks) {
		return paths, nil
	}
	mockPath := in.String(config.KeyMockPath)
	if mockPath == "" {
		return nil, fmt.Errorf("%w: mocks enabled but %q is unset", ErrStagePrecondition, config.KeyMockPath)
	}
	return append(paths, mockPath), nil
}

func includePaths(in *Input) (Contribution, error) {
	paths := concat(in, config.KeyPathsTest, config.KeyPathsSupport, config.KeyPathsSource, config.KeyPathsInclude)
	paths, err := withMockPath(in, paths)
	if err != nil {
		return Contribution{}, err
	}
	return single(config.KeyCollectionIncludePaths, unique(paths)), nil
}

func testAndSourcePaths(in *Input) (Contribution, error) {
	paths := concat(in, config.KeyPathsTest, config.KeyPathsSupport, config.KeyPathsSource)
	paths, err := withMockPath(in, paths)
	if err != nil {
		return Contribution{}, err
	}
	return single(config.KeyCollectionTestSourcePaths, unique(paths)), nil
}

func collectTests(in *Input) (Contribution, error) {
	name := in.String(config.KeyProjectTestFilePrefix) + "*" + in.String(config.KeyExtensionSource)
	files, err := collectFiles(in, in.Strings(config.KeyPathsTest), name)
	if err != nil {
		return Contribution{}, err
	}
	return single(config.KeyCollectionAllTests, files), nil
}

func collectSource(in *Input) (Contribution, error) {
	files, err := collectFiles(in, in.Strings(config.KeyPathsSource), "*"+in.String(config.KeyExtensionSource))
	if err != nil {
		return Contribution{}, err
	}
	return single(config.KeyCollectionAllSource, files), nil
}

func collectHeaders(in *Input) (Contribution, error) {
	files, err := collectFiles(in, in.Strings(config.KeyCollectionIncludePaths), "*"+in.String(config.KeyExtensionHeader))
	if err != nil {
		return Contribution{}, err
	}
	return single(config.KeyCollectionAllHeaders, files), nil
}

func collectDefines(in *Input) (Contribution, error) {
	defines := concat(in, config.KeyDefinesTest, config.KeyUnityDefines)
	if in.Bool(config.KeyProjectUseMocks) {
		defines = append(defines, in.Strings(config.KeyMockDefines)...)
	}
	if in.Bool(config.KeyProjectUseExceptions) {
		defines = append(defines, in.Strings(config.KeyCExceptionDefines)...)
	}
	return single(config.KeyCollectionTestDefines, unique(defines)), nil
}

func collectEnvironmentDependencies(in *Input) (Contribution, error) {
	files := environment.Files(in.Get(config.KeyEnvironment))
	return single(config.KeyCollectionEnvDependencies, unique(files)), nil
}

// expandPathGlobs produces collection_paths_<name> for every paths_<name>
// and re-expands every existing path collection. Literal entries are kept;
// wildcards expand to matching directories.
func expandPathGlobs(in *Input) (Contribution, error) {
	sources := map[string][]string{}
	for _, key := range sortedKeys(in.Values) {
		switch {
		case strings.HasPrefix(key, config.PrefixPaths):
			target := config.PrefixCollectionPaths + strings.TrimPrefix(key, config.PrefixPaths)
			if _, explicit := in.Values[target]; !explicit {
				sources[target] = in.Strings(key)
			}
		case strings.HasPrefix(key, config.PrefixCollectionPaths):
			sources[key] = in.Strings(key)
		}
	}

	out := make(map[string]config.Node, len(sources))
	empty := map[string][]string{}
	for _, key := range sortedKeys(sources) {
		var expanded []string
		for _, entry := range sources[key] {
			if !fsglob.HasMeta(entry) {
				expanded = append(expanded, entry)
				continue
			}
			dirs, err := in.Glob.Dirs(entry)
			if err != nil {
				return Contribution{}, fmt.Errorf("expand %s: %w", key, err)
			}
			if len(dirs) == 0 {
				empty[key] = append(empty[key], entry)
				continue
			}
			expanded = append(expanded, dirs...)
		}
		out[key] = config.Strings(unique(expanded)...)
	}
	if len(empty) > 0 {
		return Contribution{}, &GlobError{Patterns: empty}
	}
	return Contribution{Values: out}, nil
}

func collectFiles(in *Input, dirs []string, name string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		matches, err := in.Glob.Files(fsglob.Join(dir, name))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return sortedUnique(files), nil
}

func concat(in *Input, keys ...string) []string {
	var out []string
	for _, key := range keys {
		out = append(out, in.Strings(key)...)
	}
	return out
}

func single(key string, values []string) Contribution {
	return Contribution{Values: map[string]config.Node{key: config.Strings(values...)}}
}

// unique keeps the first occurrence of each entry.
func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sortedUnique(values []string) []string {
	out := unique(values)
	sort.Strings(out)
	return out
}
