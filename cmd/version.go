package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the build version of modimporter, the commit it was built from and the Go version used to build it.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok || info.Main.Version == "" {
				cmd.Println("version: unknown")
				return
			}

			cmd.Println("modimporter version\t", info.Main.Version)

			if revision := buildRevision(info.Settings); revision != "" {
				cmd.Println("commit\t", revision)
			}

			cmd.Println("go version\t", info.GoVersion)
		},
	}
}

// buildRevision returns the VCS revision stamped into the binary, shortened
// and suffixed with "-dirty" for builds from a modified tree.
func buildRevision(settings []debug.BuildSetting) string {
	var revision string

	dirty := false

	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if len(revision) > 12 {
		revision = revision[:12]
	}

	if revision != "" && dirty {
		revision += "-dirty"
	}

	return revision
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
