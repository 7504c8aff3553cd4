package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimatic",
		Short: "Daily interval-estimation game server",
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPopulateCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}
