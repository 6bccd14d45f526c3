package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectSource identifies where the project file was discovered.
type ProjectSource string

const (
	ProjectSourceExplicit   ProjectSource = "explicit"
	ProjectSourceEnv        ProjectSource = "env"
	ProjectSourceWorkingDir ProjectSource = "working-dir"
)

// ProjectEnvVar names the environment variable that may point at the project file.
const ProjectEnvVar = "CEEDLING_PROJECT"

// projectFileNames are probed in order inside the working directory.
var projectFileNames = []string{"project.yml", "project.yaml", "project.hcl"}

// LocationResult describes the discovered project file.
type LocationResult struct {
	Path   string
	Source ProjectSource
}

// ErrProjectNotFound is returned when no project file can be located.
var ErrProjectNotFound = errors.New("project configuration not found")

// LocateProject discovers the project file following the precedence rules:
// explicit path → CEEDLING_PROJECT → ./project.yml → ./project.yaml → ./project.hcl.
func LocateProject(explicitPath string) (LocationResult, error) {
	if path := strings.TrimSpace(explicitPath); path != "" {
		abs, err := toAbsolute(filepath.Clean(path))
		if err != nil {
			return LocationResult{}, err
		}
		if exists(abs) {
			return LocationResult{Path: abs, Source: ProjectSourceExplicit}, nil
		}
		return LocationResult{}, fmt.Errorf("%w: %s", ErrProjectNotFound, abs)
	}

	if path, ok := os.LookupEnv(ProjectEnvVar); ok && strings.TrimSpace(path) != "" {
		abs, err := toAbsolute(path)
		if err != nil {
			return LocationResult{}, err
		}
		if exists(abs) {
			return LocationResult{Path: abs, Source: ProjectSourceEnv}, nil
		}
		return LocationResult{}, fmt.Errorf("%w: %s", ErrProjectNotFound, abs)
	}

	if wd, err := os.Getwd(); err == nil {
		for _, name := range projectFileNames {
			path := filepath.Join(wd, name)
			if exists(path) {
				return LocationResult{Path: path, Source: ProjectSourceWorkingDir}, nil
			}
		}
	}

	return LocationResult{}, ErrProjectNotFound
}

func toAbsolute(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	return abs, nil
}

func exists(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !stat.IsDir()
}
