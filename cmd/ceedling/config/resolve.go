package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pkgconfig "github.com/serjche/Ceedling/pkg/config"
)

// NewResolveCommand constructs `ceedling config resolve`.
func NewResolveCommand() *cobra.Command {
	return newResolveCommand(DefaultDeps())
}

func newResolveCommand(deps Deps) *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Assemble the project configuration and print every resolved key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd, opts, deps)
		},
	}
	bindFlags(cmd, opts)
	return cmd
}

func runResolve(cmd *cobra.Command, opts *Options, deps Deps) error {
	s, err := openSession(cmd, opts, deps)
	if err != nil {
		return err
	}
	metadata := s.metadata()
	logCommandStart(s.logger, stepResolve, metadata)

	resolved, err := s.assembler.Assemble(cmd.Context(), s.raw)
	if err == nil {
		err = s.assembler.InsertRakePlugins()
	}
	if err != nil {
		logCommandFailure(s.logger, stepResolve, metadata, err)
		return err
	}

	rendered, err := pkgconfig.FormatSummary(resolved, s.format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, rendered); err != nil {
		return err
	}
	logCommandSuccess(s.logger, stepResolve, metadata)
	return nil
}

func writeOutput(cmd *cobra.Command, rendered string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(rendered, "\n"))
	return err
}
