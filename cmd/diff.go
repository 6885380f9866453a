package cmd

import (
	"github.com/spf13/cobra"

	"modimporter.dev/pkg/modimporter/internal/domain"
)

// diffCmd represents the diff command.
var diffCmd = newDiffCmd()

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [targets...]",
		Short: "Show what the last run changed",
		Long: `Compare every backed-up target (or only the given ones, relative to the
content root) with its pristine copy. Text files get a unified diff, binary
record files a JSON Patch over their records.`,
		RunE: func(cmd *cobra.Command, targets []string) error {
			return workflow.Diff(cmd.Context(), domain.DiffArgs{
				RunArgs: runArgs(),
				Targets: parsePaths(targets),
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
