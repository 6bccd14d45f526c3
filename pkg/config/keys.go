package config

// Resolved key namespace. Flattening turns section S with sub-key k into key
// "S_k"; derived keys use the "project_" and "collection_" prefixes.
const (
	KeyProjectBuildRoot       = "project_build_root"
	KeyProjectVerbosity       = "project_verbosity"
	KeyProjectUseMocks        = "project_use_mocks"
	KeyProjectUseExceptions   = "project_use_exceptions"
	KeyProjectUsePreprocessor = "project_use_preprocessor"
	KeyProjectReleaseBuild    = "project_release_build"
	KeyProjectTestFilePrefix  = "project_test_file_prefix"
	KeyProjectBuildPaths      = "project_build_paths"
	KeyProjectRakefileFiles   = "project_rakefile_component_files"

	KeyProjectTestBuildOutputPath    = "project_test_build_output_path"
	KeyProjectTestResultsPath        = "project_test_results_path"
	KeyProjectTestBuildCachePath     = "project_test_build_cache_path"
	KeyProjectTestDependenciesPath   = "project_test_dependencies_path"
	KeyProjectTestRunnersPath        = "project_test_runners_path"
	KeyProjectTestPreprocessIncludes = "project_test_preprocess_includes_path"
	KeyProjectTestPreprocessFiles    = "project_test_preprocess_files_path"
	KeyProjectReleaseBuildOutputPath = "project_release_build_output_path"
	KeyProjectReleaseArtifactsPath   = "project_release_artifacts_path"
	KeyProjectLogPath                = "project_log_path"
	KeyProjectTempPath               = "project_temp_path"

	KeyPathsTest    = "paths_test"
	KeyPathsSource  = "paths_source"
	KeyPathsSupport = "paths_support"
	KeyPathsInclude = "paths_include"

	KeyDefinesTest       = "defines_test"
	KeyUnityDefines      = "unity_defines"
	KeyMockDefines       = "mock_defines"
	KeyCExceptionDefines = "cexception_defines"
	KeyMockPath          = "mock_mock_path"
	KeyEnvironment       = "environment"
	KeyExtensionSource   = "extension_source"
	KeyExtensionHeader   = "extension_header"
	KeyTestRunnerSuffix  = "test_runner_file_suffix"
	KeyPluginsBasePath   = "plugins_base_path"
	KeyPluginsEnabled    = "plugins_enabled"

	KeyCollectionIncludePaths    = "collection_paths_test_support_source_include"
	KeyCollectionTestSourcePaths = "collection_paths_test_and_source"
	KeyCollectionAllTests        = "collection_all_tests"
	KeyCollectionAllSource       = "collection_all_source"
	KeyCollectionAllHeaders      = "collection_all_headers"
	KeyCollectionTestDefines     = "collection_defines_test_and_vendor"
	KeyCollectionEnvDependencies = "collection_environment_dependencies"

	// PrefixPaths marks flattened entries from the paths section.
	PrefixPaths = "paths_"
	// PrefixCollectionPaths marks expanded path collections.
	PrefixCollectionPaths = "collection_paths_"
)

// Top-level section names of a raw configuration.
const (
	SectionProject     = "project"
	SectionPaths       = "paths"
	SectionTools       = "tools"
	SectionPlugins     = "plugins"
	SectionMock        = "mock"
	SectionEnvironment = "environment"
	SectionDefines     = "defines"
	SectionExtension   = "extension"
)
