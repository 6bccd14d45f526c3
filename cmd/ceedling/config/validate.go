package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serjche/Ceedling/internal/validation"
	pkgconfig "github.com/serjche/Ceedling/pkg/config"
)

// NewValidateCommand constructs `ceedling config validate`.
func NewValidateCommand() *cobra.Command {
	return newValidateCommand(DefaultDeps())
}

func newValidateCommand(deps Deps) *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Merge defaults and plugins, then validate the project configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts, deps)
		},
	}
	bindFlags(cmd, opts)
	return cmd
}

type validationFailure struct {
	Kind     string `json:"kind"`
	Location string `json:"location"`
	Detail   string `json:"detail,omitempty"`
}

type validationReport struct {
	Project  string              `json:"project"`
	Valid    bool                `json:"valid"`
	Fatal    bool                `json:"fatal,omitempty"`
	Failures []validationFailure `json:"failures,omitempty"`
}

func runValidate(cmd *cobra.Command, opts *Options, deps Deps) error {
	s, err := openSession(cmd, opts, deps)
	if err != nil {
		return err
	}
	metadata := s.metadata()
	logCommandStart(s.logger, stepValidate, metadata)

	_, _, _, prepErr := s.assembler.Prepare(s.raw)
	report := validationReport{Project: s.location.Path, Valid: prepErr == nil}

	var fatal *validation.FatalError
	var aggregate *validation.AggregateError
	switch {
	case prepErr == nil:
	case errors.As(prepErr, &fatal):
		report.Fatal = true
		report.Failures = []validationFailure{toValidationFailure(fatal.Failure)}
	case errors.As(prepErr, &aggregate):
		for _, f := range aggregate.Failures {
			report.Failures = append(report.Failures, toValidationFailure(f))
		}
	default:
		logCommandFailure(s.logger, stepValidate, metadata, prepErr)
		return prepErr
	}

	if err := renderValidationReport(cmd, report, s.format); err != nil {
		return err
	}
	if prepErr != nil {
		logCommandFailure(s.logger, stepValidate, metadata, prepErr)
		return prepErr
	}
	logCommandSuccess(s.logger, stepValidate, metadata)
	return nil
}

func toValidationFailure(f validation.Failure) validationFailure {
	kind := ""
	if f.Kind != nil {
		kind = f.Kind.Error()
	}
	return validationFailure{Kind: kind, Location: f.Location, Detail: f.Detail}
}

func renderValidationReport(cmd *cobra.Command, report validationReport, format string) error {
	out := cmd.OutOrStdout()
	if format == pkgconfig.SummaryFormatJSON {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal validation report: %w", err)
		}
		return writeOutput(cmd, string(encoded))
	}

	if report.Valid {
		_, err := fmt.Fprintf(out, "Configuration valid: %s\n", report.Project)
		return err
	}
	fmt.Fprintf(out, "Configuration invalid: %s\n", report.Project)
	for _, f := range report.Failures {
		if f.Detail == "" {
			fmt.Fprintf(out, "- %s: %s\n", f.Kind, f.Location)
			continue
		}
		fmt.Fprintf(out, "- %s: %s: %s\n", f.Kind, f.Location, f.Detail)
	}
	return nil
}
