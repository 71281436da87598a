package main

import (
	"os"

	"github.com/spf13/cobra"

	"autoskip/internal/runner"
)

var runFlags sessionFlags

var runCmd = &cobra.Command{
	Use:   "run [testpaths...] [-- pytest args...]",
	Short: "Run pytest on the test modules that cannot be skipped",
	Long: `Plan the session, print one SKIPPED line per skipped test module and run
pytest on the rest. Arguments after -- are passed to pytest. The exit code is
pytest's; when every module is skipped pytest is not started and the exit code
is 0.

Examples:
  autoskip run
  autoskip run tests -- -x -q
  autoskip run --enabled=false          # Plain pytest over every module`,
	RunE: runRun,
}

func init() {
	runFlags.register(runCmd, true)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	testPaths, pytestArgs := args, []string(nil)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		testPaths, pytestArgs = args[:dash], args[dash:]
	}

	env, err := newEnvironment(cmd, &runFlags)
	if err != nil {
		return err
	}

	r := env.runner()
	plan, err := r.Plan(cmd.Context(), testPaths)
	if err != nil {
		return err
	}
	env.record(plan)

	code, err := r.Execute(cmd.Context(), plan, pytestArgs, runner.IO{
		Stdin:  os.Stdin,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}
