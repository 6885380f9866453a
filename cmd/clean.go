package cmd

import (
	"github.com/spf13/cobra"
)

// cleanCmd represents the clean command.
var cleanCmd = newCleanCmd()

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Revert every edit made by the last run",
		Long: `Restore each target from the backup directory, delete files the last run
created and remove the backups, without applying any mod.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.Clean(cmd.Context(), runArgs())
		},
	}
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
