package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"modimporter.dev/pkg/modimporter/internal/domain"
	m "modimporter.dev/pkg/modimporter/internal/model"
)

var dumpFormatFlag string

// dumpCmd represents the dump command.
var dumpCmd = newDumpCmd()

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the records of a binary record file",
		Long: `Decode a binary record file (relative to the content root) and print its
records in schema field order, as a starting point for Map patches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Dump(cmd.Context(), domain.DumpArgs{
				Root:   viper.GetString(rootConfigKey),
				File:   m.Path(args[0]),
				Format: dumpFormatFlag,
			})
		},
	}

	cmd.Flags().StringVarP(&dumpFormatFlag, formatFlagName, "f", defaultDumpFormat, "output format (json or yaml)")

	return cmd
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
