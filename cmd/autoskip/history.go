package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autoskip/internal/storage"
)

var (
	historyLimit  int
	historyKeep   int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List recorded sessions",
	Long: `List the sessions recorded with --record (or history.enabled), newest
first. With a session id, print that session's per-module decisions.

Examples:
  autoskip history
  autoskip history --limit=5 --format=json
  autoskip history 1b4e28ba-2fa1-11d2-883f-0016d3cca427
  autoskip history --keep=50            # Delete all but the newest 50`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of sessions to list (0 for all)")
	historyCmd.Flags().IntVar(&historyKeep, "keep", 0, "Prune all but the newest N sessions before listing")
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(cmd, nil)
	if err != nil {
		return err
	}

	db, err := storage.Open(env.repoRoot, env.logger)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck
	repo := storage.NewHistoryRepository(db)

	var resp interface{}
	if len(args) == 1 {
		session, err := repo.GetSession(args[0])
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("no recorded session %q", args[0])
		}
		resp = session
	} else {
		out := &HistoryResponseCLI{}
		if cmd.Flags().Changed("keep") {
			if historyKeep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}
			if out.Pruned, err = repo.PruneSessions(historyKeep); err != nil {
				return err
			}
		}
		if out.Sessions, err = repo.ListSessions(historyLimit); err != nil {
			return err
		}
		resp = out
	}

	output, err := FormatResponse(resp, OutputFormat(historyFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
