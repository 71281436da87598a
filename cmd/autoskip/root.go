package main

import (
	"github.com/spf13/cobra"

	"autoskip/internal/version"
)

var (
	// verbosity is the count of -v flags
	verbosity int
	quiet     bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "autoskip",
	Short: "autoskip - skip Python tests whose imports did not change",
	Long: `autoskip decides, for every Python test module, whether it can be skipped
because nothing in its transitive import closure changed since a baseline git
reference. Skipped modules are always listed; everything else runs.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("autoskip version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logs")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (human, json); defaults to logging.format")
}
