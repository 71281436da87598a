package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	explainFlags  sessionFlags
	explainFormat string
)

var explainCmd = &cobra.Command{
	Use:   "explain <module|path>",
	Short: "Explain why a module must run or can be skipped",
	Long: `Evaluate a single module in a fresh session and print the decision, the
name that forced the run, the reason and the import chain leading to it.

Examples:
  autoskip explain tests/test_api.py
  autoskip explain tests.unit.test_models
  autoskip explain app.core --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	explainFlags.register(explainCmd, false)
	explainCmd.Flags().StringVar(&explainFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(cmd, &explainFlags)
	if err != nil {
		return err
	}

	target := args[0]
	if strings.HasSuffix(target, ".py") || strings.ContainsRune(target, filepath.Separator) {
		// Paths are relative to where the user stands, not the repo root.
		if abs, err := filepath.Abs(target); err == nil {
			target = abs
		}
	}

	exp, err := env.runner().Explain(cmd.Context(), target)
	if err != nil {
		return err
	}

	output, err := FormatResponse(exp, OutputFormat(explainFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
