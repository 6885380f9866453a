package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"modimporter.dev/pkg/modimporter/internal/domain"
)

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-apply mods whenever the mods directory changes",
		Long: `Apply once, then watch the mods directory and apply again after every
burst of changes until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := applyArgs()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return workflow.Watch(ctx, domain.WatchArgs{
				RunArgs:  args,
				Debounce: viper.GetDuration(watchDebounceConfigKey),
			})
		},
	}

	cmd.Flags().Duration(debounceFlagName, viper.GetDuration(watchDebounceConfigKey), "quiet period before re-applying")
	bindFlagToConfig(cmd.Flags().Lookup(debounceFlagName), watchDebounceConfigKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
