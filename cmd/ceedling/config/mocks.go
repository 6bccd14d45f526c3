package config

import (
	"github.com/spf13/cobra"

	pkgconfig "github.com/serjche/Ceedling/pkg/config"
)

// NewMocksCommand constructs `ceedling config mocks`.
func NewMocksCommand() *cobra.Command {
	return newMocksCommand(DefaultDeps())
}

func newMocksCommand(deps Deps) *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "mocks",
		Short: "Print the configuration handed to the mock generator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMocks(cmd, opts, deps)
		},
	}
	bindFlags(cmd, opts)
	return cmd
}

func runMocks(cmd *cobra.Command, opts *Options, deps Deps) error {
	s, err := openSession(cmd, opts, deps)
	if err != nil {
		return err
	}
	metadata := s.metadata()
	logCommandStart(s.logger, stepMocks, metadata)

	_, _, mock, err := s.assembler.Prepare(s.raw)
	if err != nil {
		logCommandFailure(s.logger, stepMocks, metadata, err)
		return err
	}

	rendered, err := pkgconfig.FormatMockSummary(mock, s.format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, rendered); err != nil {
		return err
	}
	logCommandSuccess(s.logger, stepMocks, metadata)
	return nil
}
