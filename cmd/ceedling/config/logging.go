package config

import (
	"errors"
	"fmt"

	"github.com/serjche/Ceedling/internal/cli/logging"
	"github.com/serjche/Ceedling/pkg/telemetry"
)

const (
	stepResolve  = "resolve"
	stepValidate = "validate"
	stepPlugins  = "plugins"
	stepMocks    = "mocks"
	stepDump     = "dump"
)

func logCommandEntry(logger telemetry.StructuredLogger, step, message string, severity telemetry.Severity, metadata map[string]string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		// Failures may echo tool arguments or environment values.
		err = errors.New(logging.SanitizeText(err.Error()))
	}
	_ = logger.Emit(telemetry.Entry{
		Category: telemetry.CategoryAssembly,
		Message:  message,
		Severity: severity,
		Stage:    step,
		Metadata: cloneMetadata(metadata),
		Error:    err,
	})
}

func logCommandStart(logger telemetry.StructuredLogger, step string, metadata map[string]string) {
	logCommandEntry(logger, step, fmt.Sprintf("config %s started", step), telemetry.SeverityInfo, metadata, nil)
}

func logCommandSuccess(logger telemetry.StructuredLogger, step string, metadata map[string]string) {
	logCommandEntry(logger, step, fmt.Sprintf("config %s completed", step), telemetry.SeverityInfo, metadata, nil)
}

func logCommandFailure(logger telemetry.StructuredLogger, step string, metadata map[string]string, err error) {
	logCommandEntry(logger, step, fmt.Sprintf("config %s failed", step), telemetry.SeverityError, metadata, err)
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
