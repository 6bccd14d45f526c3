package config

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	internalconfig "github.com/serjche/Ceedling/internal/config"
	"github.com/serjche/Ceedling/internal/environment"
	"github.com/serjche/Ceedling/internal/plugins"
	"github.com/serjche/Ceedling/pkg/assembler"
	pkgconfig "github.com/serjche/Ceedling/pkg/config"
	"github.com/serjche/Ceedling/pkg/telemetry"
)

// verbosityStructuredLogs is the lowest level that emits JSON logs.
const verbosityStructuredLogs = 4

// session is one invocation's loaded project and assembler.
type session struct {
	assembler *assembler.Assembler
	raw       pkgconfig.Node
	location  internalconfig.LocationResult
	logger    telemetry.StructuredLogger
	format    string
}

func openSession(cmd *cobra.Command, opts *Options, deps Deps) (*session, error) {
	deps = deps.withDefaults()

	format, err := resolveOutput(opts.Output, cmd.OutOrStdout(), deps.IsTerminal)
	if err != nil {
		return nil, err
	}

	location, err := deps.Locate(opts.ProjectPath)
	if err != nil {
		return nil, err
	}
	raw, err := deps.Load(location.Path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", location.Path, err)
	}

	logger := telemetry.Discard
	var emitter *telemetry.Emitter
	level, levelSet := opts.Verbosity.Level()
	if levelSet && level >= verbosityStructuredLogs {
		l, err := telemetry.NewLogger(cmd.ErrOrStderr(), deps.NewInvocationID())
		if err != nil {
			return nil, err
		}
		logger = l
		emitter = telemetry.NewEmitter(cmd.ErrOrStderr())
	}

	root := filepath.Dir(location.Path)
	asm := assembler.New(assembler.Options{
		Glob:        deps.NewGlobber(root),
		Plugins:     plugins.NewResolver(plugins.Options{Root: root, Logger: logger}),
		Environment: deps.Environment,
		DotenvRead:  environment.ReadDotenvFrom(root, nil),
		Logger:      logger,
		Emitter:     emitter,
	})
	if levelSet {
		if err := asm.SetVerbosity(level); err != nil {
			return nil, err
		}
	}

	return &session{
		assembler: asm,
		raw:       raw,
		location:  location,
		logger:    logger,
		format:    format,
	}, nil
}

func (s *session) metadata() map[string]string {
	return map[string]string{
		"project": s.location.Path,
		"source":  string(s.location.Source),
		"format":  s.format,
		"keys":    strconv.Itoa(s.raw.Len()),
	}
}
