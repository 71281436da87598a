package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autoskip/internal/config"
	"autoskip/internal/errors"
	"autoskip/internal/paths"
)

var (
	initForce bool
	initBase  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .autoskip/config.json",
	Long: `Creates .autoskip/config.json with the default configuration at the
repository top level. An existing file is left alone unless --force is given.

Examples:
  autoskip init
  autoskip init --base=origin/main --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
	initCmd.Flags().StringVar(&initBase, "base", "", "Baseline git reference to store as base_ref")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "Failed to get current directory", err, nil)
	}
	repoRoot, _ := findRepoRoot(wd)

	path, written, err := writeDefaultConfig(repoRoot, initBase, initForce)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !written {
		fmt.Fprintf(out, "autoskip already initialized.\nConfiguration at: %s\n", path)
		fmt.Fprintln(out, "\nRun 'autoskip init --force' to overwrite it.")
		return nil
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

// writeDefaultConfig saves the default configuration for repoRoot. An
// existing file is kept, and reported as not written, unless force is set.
func writeDefaultConfig(repoRoot, base string, force bool) (string, bool, error) {
	path := paths.GetConfigPath(repoRoot)
	if _, err := os.Stat(path); err == nil && !force {
		return path, false, nil
	}

	cfg := config.DefaultConfig()
	if base != "" {
		cfg.BaseRef = base
	}
	if err := cfg.Validate(); err != nil {
		return "", false, errors.New(errors.ConfigInvalid, "invalid configuration", err, nil)
	}
	if err := cfg.Save(repoRoot); err != nil {
		return "", false, errors.New(errors.InternalError, "Failed to write config file", err, nil)
	}
	return path, true, nil
}
