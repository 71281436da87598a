package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"autoskip/internal/backends/git"
	"autoskip/internal/config"
	"autoskip/internal/errors"
	"autoskip/internal/paths"
	"autoskip/internal/runner"
	"autoskip/internal/slogutil"
	"autoskip/internal/storage"
)

// sessionFlags are the per-session overrides shared by plan, run and explain
type sessionFlags struct {
	enabled            bool
	base               string
	safe               bool
	includeUncommitted bool
	record             bool
}

func (f *sessionFlags) register(cmd *cobra.Command, withRecord bool) {
	flags := cmd.Flags()
	flags.BoolVar(&f.enabled, "enabled", true, "Enable skipping; when false every test runs")
	flags.StringVar(&f.base, "base", "origin/master", "Baseline git reference for the changed-file diff")
	flags.BoolVar(&f.safe, "safe", false, "Run whenever an imported name cannot be resolved to a file")
	flags.BoolVar(&f.includeUncommitted, "include-uncommitted", false, "Also count working-tree, staged and untracked changes")
	if withRecord {
		flags.BoolVar(&f.record, "record", false, "Record the session decisions in .autoskip/autoskip.db")
	}
}

// apply copies the flags the user actually set over cfg, so unset flags
// leave the configuration layers in charge.
func (f *sessionFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("enabled") {
		cfg.Enabled = f.enabled
	}
	if flags.Changed("base") {
		cfg.BaseRef = f.base
	}
	if flags.Changed("safe") {
		cfg.SafeMode = f.safe
	}
	if flags.Changed("include-uncommitted") {
		cfg.IncludeUncommitted = f.includeUncommitted
	}
	if flags.Lookup("record") != nil && flags.Changed("record") {
		cfg.History.Enabled = f.record
	}
}

// environment is what every command needs from the repository it runs in
type environment struct {
	repoRoot string
	cfg      *config.Config
	logger   *slog.Logger
	changes  runner.ChangedSetProvider
}

// newEnvironment locates the repository, loads the layered configuration,
// applies flag overrides and opens the git backend. Outside a git
// repository the working directory is the root and the changed set is
// unavailable, so every test runs.
func newEnvironment(cmd *cobra.Command, flags *sessionFlags) (*environment, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	repoRoot, gitErr := findRepoRoot(wd)

	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to load configuration", err, nil)
	}
	if flags != nil {
		flags.apply(cmd, cfg)
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid configuration", err, nil)
	}

	logger := newLogger(cfg)
	env := &environment{repoRoot: repoRoot, cfg: cfg, logger: logger}

	if gitErr != nil {
		env.changes = runner.Unavailable(gitErr)
		return env, nil
	}
	adapter, err := git.NewGitAdapter(repoRoot, time.Duration(cfg.Git.TimeoutMs)*time.Millisecond, logger)
	if err != nil {
		env.changes = runner.Unavailable(err)
	} else {
		env.changes = adapter
	}
	return env, nil
}

func (env *environment) runner() *runner.Runner {
	return runner.New(env.repoRoot, env.cfg, env.changes, env.logger)
}

// record stores plan in the history database when history is enabled.
// Failures are logged; the session itself already succeeded.
func (env *environment) record(plan *runner.Plan) {
	if !env.cfg.History.Enabled {
		return
	}
	db, err := storage.Open(env.repoRoot, env.logger)
	if err != nil {
		env.logger.Warn("Could not open history database", "error", err.Error())
		return
	}
	defer db.Close() //nolint:errcheck

	if err := runner.Record(storage.NewHistoryRepository(db), plan); err != nil {
		env.logger.Warn("Could not record session", "session", plan.SessionID, "error", err.Error())
		return
	}
	env.logger.Debug("Recorded session", "session", plan.SessionID, "db", db.Path())
}

// findRepoRoot returns the git top level containing dir, or dir itself
// together with the reason git cannot be used.
func findRepoRoot(dir string) (string, error) {
	adapter, err := git.NewGitAdapter(dir, 0, nil)
	if err == nil {
		return adapter.RepoRoot(), nil
	}
	if real, rerr := paths.RealPath(dir); rerr == nil {
		dir = real
	}
	return dir, err
}

// newLogger writes to stderr. -v and -q win over logging.level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	return slogutil.NewFormatLogger(os.Stderr, cfg.Logging.Format, level)
}
