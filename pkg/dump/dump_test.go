package dump_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/serjche/Ceedling/pkg/config"
	"github.com/serjche/Ceedling/pkg/dump"
)

type stubResolver struct {
	baseDir string
	last    dump.Overrides
	fail    error
}

func (s *stubResolver) Resolve(overrides dump.Overrides) (string, error) {
	s.last = overrides
	if s.fail != nil {
		return "", s.fail
	}
	if overrides.FilePath != "" {
		return overrides.FilePath, nil
	}
	dir := overrides.Directory
	if dir == "" {
		dir = s.baseDir
	}
	name := overrides.FileName
	if name == "" {
		name = "project_config.yml"
	}
	return filepath.Join(dir, name), nil
}

func sampleRecord() dump.Record {
	return dump.Record{
		Project:   "/work/project.yml",
		Timestamp: "2024-05-01T12:00:00Z",
		Resolved: config.NewResolved(map[string]config.Node{
			config.KeyProjectBuildRoot:   config.String("build"),
			config.KeyProjectVerbosity:   config.Scalar(3),
			config.KeyCollectionAllTests: config.Strings("test/test_a.c"),
		}),
	}
}

func readYAML(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}
	return payload
}

func TestManagerWritesDumpInDefaultDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build")
	manager := dump.NewManager(&stubResolver{baseDir: dir})

	path, err := manager.Write(sampleRecord(), dump.Overrides{})
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if path != filepath.Join(dir, "project_config.yml") {
		t.Fatalf("unexpected path: %s", path)
	}

	want := map[string]any{
		config.KeyProjectBuildRoot:   "build",
		config.KeyProjectVerbosity:   3,
		config.KeyCollectionAllTests: []any{"test/test_a.c"},
	}
	if diff := cmp.Diff(want, readYAML(t, path)); diff != "" {
		t.Fatalf("unexpected dump (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestManagerOverwritesExistingDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yml")
	if err := os.WriteFile(path, []byte("stale: true\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	manager := dump.NewManager(&stubResolver{})

	if _, err := manager.Write(sampleRecord(), dump.Overrides{FilePath: path}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if _, stale := readYAML(t, path)["stale"]; stale {
		t.Fatalf("expected previous dump to be replaced")
	}
}

func TestManagerPropagatesResolverError(t *testing.T) {
	boom := errors.New("boom")
	manager := dump.NewManager(&stubResolver{fail: boom})
	if _, err := manager.Write(sampleRecord(), dump.Overrides{}); !errors.Is(err, boom) {
		t.Fatalf("expected resolver error, got %v", err)
	}
}

func TestManagerWrapsFilesystemErrors(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	manager := dump.NewManager(&stubResolver{})

	_, err := manager.Write(sampleRecord(), dump.Overrides{FilePath: filepath.Join(blocker, "dump.yml")})
	if !errors.Is(err, dump.ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
}

func TestEncodeAddsHeaderComment(t *testing.T) {
	out, err := dump.Encode(sampleRecord())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(out)
	if !strings.HasPrefix(text, "# Resolved configuration of /work/project.yml\n# Generated 2024-05-01T12:00:00Z\n") {
		t.Fatalf("missing header comment:\n%s", text)
	}
	if strings.Index(text, config.KeyCollectionAllTests) > strings.Index(text, config.KeyProjectBuildRoot) {
		t.Fatalf("expected sorted keys:\n%s", text)
	}
}

func TestEncodeRejectsNil(t *testing.T) {
	if _, err := dump.Encode(dump.Record{}); err == nil {
		t.Fatalf("expected error for missing configuration")
	}
}
