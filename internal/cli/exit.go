package cli

import (
	"errors"

	"github.com/serjche/Ceedling/internal/plugins"
	"github.com/serjche/Ceedling/internal/validation"
	"github.com/serjche/Ceedling/pkg/assembler"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
)

// ExitCode maps a command error to a process exit code. Errors caused by
// the project's configuration exit with ExitConfiguration.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var fatal *validation.FatalError
	var aggregate *validation.AggregateError
	switch {
	case errors.As(err, &fatal), errors.As(err, &aggregate):
		return ExitConfiguration
	case errors.Is(err, plugins.ErrPluginLoad),
		errors.Is(err, assembler.ErrGlobExpansion),
		errors.Is(err, assembler.ErrKeyCollision):
		return ExitConfiguration
	default:
		return ExitFailure
	}
}
