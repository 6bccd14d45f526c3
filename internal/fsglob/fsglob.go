// Package fsglob expands path patterns against a filesystem. Patterns use
// doublestar syntax: `**` spans directories, `{a,b}` alternates.
package fsglob

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadPattern is returned for syntactically invalid patterns.
var ErrBadPattern = errors.New("invalid glob pattern")

// Globber resolves patterns to concrete paths. Results are sorted.
type Globber interface {
	Files(pattern string) ([]string, error)
	Dirs(pattern string) ([]string, error)
}

// FS expands relative patterns inside fsys and absolute patterns against the
// host filesystem.
type FS struct {
	fsys fs.FS
}

// New returns a Globber over fsys.
func New(fsys fs.FS) *FS {
	return &FS{fsys: fsys}
}

// Dir returns a Globber rooted at the host directory root.
func Dir(root string) *FS {
	return New(os.DirFS(root))
}

// Files returns the regular files matching pattern.
func (g *FS) Files(pattern string) ([]string, error) {
	return g.match(pattern, false)
}

// Dirs returns the directories matching pattern.
func (g *FS) Dirs(pattern string) ([]string, error) {
	return g.match(pattern, true)
}

func (g *FS) match(pattern string, wantDir bool) ([]string, error) {
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}

	var (
		matches []string
		stat    func(string) (fs.FileInfo, error)
		err     error
	)
	if path.IsAbs(filepath.ToSlash(pattern)) {
		matches, err = doublestar.FilepathGlob(pattern)
		stat = os.Stat
	} else {
		matches, err = doublestar.Glob(g.fsys, Clean(pattern))
		stat = func(name string) (fs.FileInfo, error) { return fs.Stat(g.fsys, name) }
	}
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", pattern, err)
	}

	out := matches[:0]
	for _, m := range matches {
		info, err := stat(m)
		if err != nil || info.IsDir() != wantDir {
			continue
		}
		out = append(out, filepath.ToSlash(m))
	}
	sort.Strings(out)
	return out, nil
}

// Clean converts a configuration path into the form io/fs expects: slash
// separated, no leading "./" and no trailing slash.
func Clean(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

// HasMeta reports whether p contains wildcard syntax.
func HasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// Valid reports whether p is a well-formed pattern.
func Valid(p string) bool {
	return doublestar.ValidatePattern(filepath.ToSlash(p))
}

// Join appends a file-name pattern to a directory pattern.
func Join(dir, name string) string {
	return path.Join(Clean(dir), name)
}
