package cmd

import (
	"github.com/spf13/cobra"
)

// statusCmd represents the status command.
var statusCmd = newStatusCmd()

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the report of the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.Status(cmd.Context(), runArgs())
		},
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
