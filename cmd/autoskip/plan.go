package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	planFlags  sessionFlags
	planFormat string
)

var planCmd = &cobra.Command{
	Use:   "plan [testpaths...]",
	Short: "Show which test modules would run or be skipped",
	Long: `Discover the test modules under the given paths (discovery.test_paths when
none are given) and decide for each one whether its import closure reaches a
file changed since the baseline reference.

Examples:
  autoskip plan                         # Plan against origin/master
  autoskip plan tests/unit              # Only modules under tests/unit
  autoskip plan --base=main --safe      # Conservative plan against main
  autoskip plan --format=list           # Paths to run, one per line (for CI)`,
	RunE: runPlan,
}

func init() {
	planFlags.register(planCmd, true)
	planCmd.Flags().StringVar(&planFormat, "format", "human", "Output format (human, json, yaml, list)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(cmd, &planFlags)
	if err != nil {
		return err
	}

	plan, err := env.runner().Plan(cmd.Context(), args)
	if err != nil {
		return err
	}
	env.record(plan)

	output, err := FormatResponse(plan, OutputFormat(planFormat))
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), output)
	}
	return nil
}
