package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionLine())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionLine falls back to the module version and VCS revision recorded by
// `go install` when no version was set at build time.
func versionLine() string {
	v, revision := version, ""

	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				revision = s.Value[:7]
			}
		}
	}

	if revision != "" {
		v += "+" + revision
	}

	return fmt.Sprintf("%s version: %s (%s %s/%s)", app, v, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
