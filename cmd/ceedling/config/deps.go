package config

import (
	"github.com/google/uuid"
	"golang.org/x/term"

	internalconfig "github.com/serjche/Ceedling/internal/config"
	"github.com/serjche/Ceedling/internal/environment"
	"github.com/serjche/Ceedling/internal/fsglob"
	pkgconfig "github.com/serjche/Ceedling/pkg/config"
)

// Deps holds the collaborators a config subcommand needs. Tests replace
// individual fields; commands built with the exported constructors use
// DefaultDeps.
type Deps struct {
	Locate          func(explicit string) (internalconfig.LocationResult, error)
	Load            func(path string) (pkgconfig.Node, error)
	Environment     environment.Applier
	NewGlobber      func(root string) fsglob.Globber
	IsTerminal      func(fd int) bool
	NewInvocationID func() string
}

// DefaultDeps wires the production implementations.
func DefaultDeps() Deps {
	return Deps{
		Locate:          internalconfig.LocateProject,
		Load:            internalconfig.NewLoader().Load,
		Environment:     environment.ProcessApplier{},
		NewGlobber:      func(root string) fsglob.Globber { return fsglob.Dir(root) },
		IsTerminal:      term.IsTerminal,
		NewInvocationID: uuid.NewString,
	}
}

func (d Deps) withDefaults() Deps {
	def := DefaultDeps()
	if d.Locate == nil {
		d.Locate = def.Locate
	}
	if d.Load == nil {
		d.Load = def.Load
	}
	if d.Environment == nil {
		d.Environment = def.Environment
	}
	if d.NewGlobber == nil {
		d.NewGlobber = def.NewGlobber
	}
	if d.IsTerminal == nil {
		d.IsTerminal = def.IsTerminal
	}
	if d.NewInvocationID == nil {
		d.NewInvocationID = def.NewInvocationID
	}
	return d
}
