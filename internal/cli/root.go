package cli

import (
	"github.com/spf13/cobra"

	configcmd "github.com/serjche/Ceedling/cmd/ceedling/config"
)

// NewRootCommand constructs the root ceedling command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ceedling",
		Short:         "ceedling assembles and inspects C unit-test build configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(configcmd.NewConfigCommand())

	return cmd
}
