package validation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingRequiredSection is fatal: a top-level section is absent.
	ErrMissingRequiredSection = errors.New("missing required section")
	// ErrMalformedSection is fatal: a structural section is not a mapping.
	ErrMalformedSection = errors.New("malformed section")
	// ErrMissingRequiredValue is reported when a required field is absent.
	ErrMissingRequiredValue = errors.New("missing required value")
	// ErrInvalidPath is reported for implausible path entries.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidToolConfig is reported for incomplete tool definitions.
	ErrInvalidToolConfig = errors.New("invalid tool configuration")
)

// Failure is one validation finding. Kind is one of the sentinel errors above.
type Failure struct {
	Kind     error
	Location string
	Detail   string
}

func (f Failure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("%v: %s", f.Kind, f.Location)
	}
	return fmt.Sprintf("%v: %s: %s", f.Kind, f.Location, f.Detail)
}

func (f Failure) Unwrap() error { return f.Kind }

// FatalError stops validation at the first structural failure.
type FatalError struct {
	Failure Failure
}

func (e *FatalError) Error() string {
	return "configuration cannot be processed: " + e.Failure.Error()
}

func (e *FatalError) Unwrap() error { return e.Failure }

// AggregateError reports every aggregate-tier failure at once.
type AggregateError struct {
	Failures []Failure
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	b.WriteString("configuration validation failed:")
	for _, f := range e.Failures {
		b.WriteString("\n- ")
		b.WriteString(f.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
