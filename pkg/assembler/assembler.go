// Package assembler turns a raw project configuration into the resolved
// configuration consumed by the build. Assembly runs plugin resolution,
// validation, defaults and path normalization, then a fixed sequence of
// stages that each contribute keys to a flat accumulator.
package assembler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/serjche/Ceedling/internal/defaults"
	"github.com/serjche/Ceedling/internal/environment"
	"github.com/serjche/Ceedling/internal/fsglob"
	"github.com/serjche/Ceedling/internal/pathutil"
	"github.com/serjche/Ceedling/internal/plugins"
	"github.com/serjche/Ceedling/internal/validation"
	"github.com/serjche/Ceedling/pkg/config"
	"github.com/serjche/Ceedling/pkg/telemetry"
)

const instrumentationName = "github.com/serjche/Ceedling/pkg/assembler"

// Verbosity bounds accepted by SetVerbosity.
const (
	VerbositySilent = 0
	VerbosityDebug  = 5
)

// Options configures an Assembler. Zero values select defaults: the working
// directory for globbing and plugins, no environment side effects and no
// logging.
type Options struct {
	Glob           fsglob.Globber
	Plugins        *plugins.Resolver
	Validator      *validation.Validator
	Environment    environment.Applier
	DotenvRead     environment.DotenvReader
	Logger         telemetry.StructuredLogger
	Emitter        *telemetry.Emitter
	ComponentsRoot string
	// Stages overrides the pipeline; intended for tests.
	Stages []Stage
}

// Assembler owns one build invocation's configuration.
type Assembler struct {
	mu        sync.Mutex
	opts      Options
	verbosity *int
	assembled bool

	resolved *config.Resolved
	mock     config.MockConfig
	plugins  plugins.Set
}

// New constructs an Assembler.
func New(opts Options) *Assembler {
	if opts.Glob == nil {
		opts.Glob = fsglob.Dir(".")
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.Discard
	}
	if opts.Plugins == nil {
		opts.Plugins = plugins.NewResolver(plugins.Options{Logger: opts.Logger})
	}
	if opts.Validator == nil {
		opts.Validator = validation.NewValidator(opts.Logger)
	}
	if opts.Environment == nil {
		opts.Environment = environment.Discard
	}
	if opts.Stages == nil {
		opts.Stages = Pipeline(opts.ComponentsRoot)
	}
	return &Assembler{opts: opts}
}

// ParseVerbosity converts a CLI value to a level in 0..5.
func ParseVerbosity(s string) (int, error) {
	level, err := strconv.Atoi(s)
	if err != nil || level < VerbositySilent || level > VerbosityDebug {
		return 0, fmt.Errorf("%w: %q (want %d..%d)", ErrInvalidVerbosity, s, VerbositySilent, VerbosityDebug)
	}
	return level, nil
}

// SetVerbosity sets both the project and mock verbosity. It must be called
// before Assemble.
func (a *Assembler) SetVerbosity(level int) error {
	if level < VerbositySilent || level > VerbosityDebug {
		return fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidVerbosity, level, VerbositySilent, VerbosityDebug)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.assembled {
		return ErrAlreadyAssembled
	}
	a.verbosity = &level
	return nil
}

// Prepare runs every step before the stages: verbosity, plugin resolution,
// validation, path normalization and mock defaults. It returns the prepared
// raw configuration without changing the Assembler's state.
func (a *Assembler) Prepare(raw config.Node) (config.Node, plugins.Set, config.MockConfig, error) {
	a.mu.Lock()
	level := a.verbosity
	a.mu.Unlock()

	if level != nil {
		v := config.Scalar(*level)
		raw = raw.WithPath(v, config.SectionProject, "verbosity")
		raw = raw.WithPath(v, config.SectionMock, config.MockFieldVerbosity)
	}

	var set plugins.Set
	err := a.opts.Emitter.EmitPhase(telemetry.PhasePlugins, nil, func() error {
		var err error
		raw, set, err = a.opts.Plugins.Resolve(defaults.PopulatePlugins(raw))
		return err
	})
	if err != nil {
		return config.Node{}, plugins.Set{}, config.MockConfig{}, err
	}

	err = a.opts.Emitter.EmitPhase(telemetry.PhaseValidate, nil, func() error {
		_, err := a.opts.Validator.Validate(raw)
		return err
	})
	if err != nil {
		return config.Node{}, plugins.Set{}, config.MockConfig{}, err
	}

	_ = a.opts.Emitter.EmitPhase(telemetry.PhaseNormalize, nil, func() error {
		raw = pathutil.NormalizeConfig(raw)
		return nil
	})

	var mock config.MockConfig
	_ = a.opts.Emitter.EmitPhase(telemetry.PhaseDefaults, nil, func() error {
		raw, mock = defaults.PopulateMock(raw)
		return nil
	})
	return raw, set, mock, nil
}

// Assemble prepares raw and runs every stage in order. On success the
// resolved configuration is frozen and returned; on failure nothing is kept
// and Assemble may be retried.
func (a *Assembler) Assemble(ctx context.Context, raw config.Node) (*config.Resolved, error) {
	a.mu.Lock()
	if a.assembled {
		a.mu.Unlock()
		return nil, ErrAlreadyAssembled
	}
	a.mu.Unlock()

	start := time.Now()
	prepared, set, mock, err := a.Prepare(raw)
	if err != nil {
		a.logFailure("assembly aborted", err)
		return nil, err
	}

	var values map[string]config.Node
	err = a.opts.Emitter.EmitPhase(telemetry.PhaseBuild, map[string]string{"stages": strconv.Itoa(len(a.opts.Stages))}, func() error {
		var err error
		values, err = a.runStages(ctx, prepared)
		return err
	})
	if err != nil {
		a.logFailure("assembly aborted", err)
		return nil, err
	}

	resolved := config.NewResolved(values)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.assembled {
		return nil, ErrAlreadyAssembled
	}
	a.resolved, a.mock, a.plugins, a.assembled = resolved, mock, set, true

	_ = a.opts.Logger.Emit(telemetry.Entry{
		Category: telemetry.CategoryAssembly,
		Message:  "configuration assembled",
		Metadata: map[string]string{
			"keys":     strconv.Itoa(resolved.Len()),
			"plugins":  strconv.Itoa(len(set.Plugins)),
			"duration": time.Since(start).String(),
		},
	})
	return resolved, nil
}

func (a *Assembler) runStages(ctx context.Context, raw config.Node) (map[string]config.Node, error) {
	tracer := otel.Tracer(instrumentationName)
	counter, err := otel.Meter(instrumentationName).Int64Counter("ceedling.assembly.stages",
		metric.WithDescription("Assembly stages executed"))
	if err != nil {
		return nil, fmt.Errorf("create stage counter: %w", err)
	}

	in := &Input{
		Raw:         raw,
		Glob:        a.opts.Glob,
		Environment: a.opts.Environment,
		DotenvRead:  a.opts.DotenvRead,
		Logger:      a.opts.Logger,
	}
	values := map[string]config.Node{}

	for i, stage := range a.opts.Stages {
		index := i + 1
		stageCtx, span := tracer.Start(ctx, "assembler.stage."+stage.Name)
		span.SetAttributes(attribute.String("ceedling.stage", stage.Name), attribute.Int("ceedling.stage.index", index))

		err := a.runStage(in, values, stage)
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		counter.Add(stageCtx, 1, metric.WithAttributes(attribute.String("ceedling.stage", stage.Name), attribute.String("outcome", outcome)))
		span.End()

		if err != nil {
			return nil, &StageError{Stage: stage.Name, Index: index, Err: err}
		}
		_ = a.opts.Logger.Emit(telemetry.Entry{
			Category: telemetry.CategoryStage,
			Message:  "stage complete",
			Stage:    stage.Name,
			Metadata: map[string]string{"index": strconv.Itoa(index), "keys": strconv.Itoa(len(values))},
		})
	}
	return values, nil
}

func (a *Assembler) runStage(in *Input, values map[string]config.Node, stage Stage) error {
	if err := stage.checkRequires(values); err != nil {
		return err
	}
	c, err := stage.Run(in)
	if err != nil {
		return err
	}
	if c.Raw != nil {
		if in.Values != nil {
			return fmt.Errorf("%w: %s replaced raw configuration after flattening", ErrUndeclaredKey, stage.Name)
		}
		in.Raw = *c.Raw
	}
	if err := stage.apply(values, c); err != nil {
		return err
	}
	if in.Values == nil && len(stage.Provides) > 0 {
		in.Values = values
	}
	return nil
}

func (a *Assembler) logFailure(message string, err error) {
	_ = a.opts.Logger.Emit(telemetry.Entry{
		Category: telemetry.CategoryAssembly,
		Message:  message,
		Error:    err,
	})
}

// Resolved returns the assembled configuration.
func (a *Assembler) Resolved() (*config.Resolved, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.assembled {
		return nil, ErrNotAssembled
	}
	return a.resolved, nil
}

// Mock returns the mock generator's configuration subset.
func (a *Assembler) Mock() (config.MockConfig, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.assembled {
		return config.MockConfig{}, ErrNotAssembled
	}
	return a.mock, nil
}

// Plugins returns the plugins discovered during assembly.
func (a *Assembler) Plugins() (plugins.Set, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.assembled {
		return plugins.Set{}, ErrNotAssembled
	}
	return a.plugins, nil
}

// InsertRakePlugins appends the discovered rake plugins to the orchestrator
// component list. It is the only mutation allowed after assembly.
func (a *Assembler) InsertRakePlugins() error {
	resolved, err := a.Resolved()
	if err != nil {
		return err
	}
	set, _ := a.Plugins()
	resolved.AppendRakeComponents(set.Rake...)
	return nil
}
