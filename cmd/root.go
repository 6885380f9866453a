// Package cmd provides the root command and CLI setup for modimporter.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"modimporter.dev/pkg/modimporter/internal/adapter"
	"modimporter.dev/pkg/modimporter/internal/controller"
	"modimporter.dev/pkg/modimporter/internal/domain"
	m "modimporter.dev/pkg/modimporter/internal/model"
)

var watchAdapter adapter.WatchAdapter
var metricsAdapter adapter.MetricsAdapter
var workflow domain.Workflow
var ui controller.UI

// cleanFlag reverts every tracked edit without re-applying.
var cleanFlag bool

// verboseFlag and quietFlag move the log level to debug or error.
var verboseFlag bool
var quietFlag bool

var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	watchAdapter = adapter.NewLocalWatchAdapter()
	metricsAdapter = adapter.NewPrometheusMetricsAdapter()
	workflow = domain.NewWorkflow(
		openContentRoot,
		watchAdapter,
		metricsAdapter,
		ui,
	)
}

func openContentRoot(root string) adapter.ContentFSAdapter {
	return adapter.NewLocalContentFSAdapter(root)
}

const rootLongDescription = `Mod Importer applies the mods found in the mods directory of a
Supergiant Games title to its content files.

Every run first reverts the edits of the previous run from the backup
directory, then reads each mod's script and merges, imports or replaces the
targeted files in priority order. Use --clean to only revert.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modimporter",
		Short: "Mod importer for Supergiant Games titles",
		Long:  rootLongDescription,
		Args:  cobra.NoArgs,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, logLevel(verboseFlag, quietFlag))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cleanFlag {
				return workflow.Clean(cmd.Context(), runArgs())
			}

			args, err := applyArgs()
			if err != nil {
				return err
			}

			return workflow.Apply(cmd.Context(), args)
		},
	}
}

// newRootCmd returns a fresh root command with its flags bound.
func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP(rootFlagName, "r", viper.GetString(rootConfigKey), "content root of the game")
	bindFlagToConfig(flags.Lookup(rootFlagName), rootConfigKey)

	flags.StringP(gameFlagName, "g", viper.GetString(gameConfigKey), "game profile (Hades, Pyre, Transistor); inferred from the content root when empty")
	bindFlagToConfig(flags.Lookup(gameFlagName), gameConfigKey)

	flags.IntP(parallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of targets patched in parallel")
	bindFlagToConfig(flags.Lookup(parallelFlagName), runParallelConfigKey)

	flags.String(metricsFlagName, viper.GetString(metricsFileConfigKey), "write run metrics to this node-exporter textfile")
	bindFlagToConfig(flags.Lookup(metricsFlagName), metricsFileConfigKey)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log debug messages")
	flags.BoolVarP(&quietFlag, quietFlagName, "q", false, "log errors only")
	flags.StringVar(&logFileFlag, logFileFlagName, "", "log file (default from config)")

	cmd.Flags().BoolVarP(&cleanFlag, cleanFlagName, "c", false, "revert every edit without applying mods")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// runArgs assembles the workflow arguments from the bound configuration.
// Default targets are left as configured; only applyArgs consults the game.
func runArgs() domain.RunArgs {
	return domain.RunArgs{
		Root:            viper.GetString(rootConfigKey),
		ModsDir:         m.Path(viper.GetString(modsDirConfigKey)),
		ModFile:         viper.GetString(modsFileConfigKey),
		DefaultTo:       parsePaths(viper.GetStringSlice(defaultToConfigKey)),
		DefaultPriority: viper.GetInt(defaultPriorityConfigKey),
		ImportPrefix:    viper.GetString(importPrefixConfigKey),
		BackupDir:       m.Path(viper.GetString(backupDirConfigKey)),
		ReportFile:      m.Path(viper.GetString(reportFileConfigKey)),
		MetricsFile:     viper.GetString(metricsFileConfigKey),
		Parallel:        viper.GetInt(runParallelConfigKey),
	}
}

// applyArgs is runArgs with the default import targets filled in from the
// game profile when none are configured.
func applyArgs() (domain.RunArgs, error) {
	args := runArgs()
	if len(args.DefaultTo) > 0 {
		return args, nil
	}

	game := domain.ResolveGame(args.Root, viper.GetString(gameConfigKey))

	targets, err := domain.DefaultTargets(game)
	if err != nil {
		slog.Error("Failed to resolve game profile", "root", args.Root, "game", game, "error", err)
		return domain.RunArgs{}, fmt.Errorf("failed to resolve game profile: %w", err)
	}

	args.DefaultTo = targets

	return args, nil
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
