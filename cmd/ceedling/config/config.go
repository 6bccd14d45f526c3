package config

import "github.com/spf13/cobra"

// NewConfigCommand constructs the `ceedling config` parent command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Assemble, validate and inspect the project configuration",
	}

	cmd.AddCommand(NewResolveCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewPluginsCommand())
	cmd.AddCommand(NewMocksCommand())
	cmd.AddCommand(NewDumpCommand())
	return cmd
}
