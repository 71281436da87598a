package git

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"autoskip/internal/errors"
	"autoskip/internal/paths"
	"autoskip/internal/slogutil"
)

const (
	// BackendID is the unique identifier for the Git backend
	BackendID = "git"

	// DefaultQueryTimeout is the default timeout for git operations (30000ms)
	DefaultQueryTimeout = 30000 * time.Millisecond
)

// GitAdapter runs git commands against one repository
type GitAdapter struct {
	repoRoot     string // repository top level, symlink-resolved
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewGitAdapter creates a git adapter for the repository containing dir.
// A zero timeout selects DefaultQueryTimeout.
func NewGitAdapter(dir string, timeout time.Duration, logger *slog.Logger) (*GitAdapter, error) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	logger = slogutil.OrDiscard(logger).With("backend", BackendID)

	if _, err := exec.LookPath("git"); err != nil {
		return nil, errors.New(errors.GitUnavailable, "Git executable not found in PATH", err, nil)
	}

	adapter := &GitAdapter{
		repoRoot:     dir,
		queryTimeout: timeout,
		logger:       logger,
	}

	top, err := adapter.executeGitCommand(context.Background(), "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, errors.New(
			errors.GitUnavailable,
			"Not inside a git repository",
			err,
			nil,
		).WithDetails(map[string]interface{}{"dir": dir})
	}
	if real, err := paths.RealPath(top); err == nil {
		top = real
	}
	adapter.repoRoot = top

	logger.Debug("Git adapter initialized",
		"repoRoot", top,
		"timeout", timeout.String(),
	)

	return adapter, nil
}

// RepoRoot returns the canonical repository top level
func (g *GitAdapter) RepoRoot() string {
	return g.repoRoot
}

// executeGitCommandRaw runs a git command with timeout and returns its untrimmed output
func (g *GitAdapter) executeGitCommandRaw(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	// Keep non-ASCII paths unescaped in diff headers and listings.
	fullArgs := append([]string{"-c", "core.quotePath=false"}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	cmd.Dir = g.repoRoot

	g.logger.Debug("Executing git command",
		"args", args,
		"timeout", g.queryTimeout.String(),
	)

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.New(
				errors.Timeout,
				"Git command timed out",
				err,
				nil,
			).WithDetails(map[string]interface{}{"args": args})
		}

		// Check if it's an exit error with stderr
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			return "", errors.New(
				errors.InternalError,
				"Git command failed: "+stderr,
				err,
				nil,
			).WithDetails(map[string]interface{}{
				"args":   args,
				"stderr": stderr,
			})
		}

		return "", errors.New(
			errors.InternalError,
			"Failed to execute git command",
			err,
			nil,
		)
	}

	return string(output), nil
}

// executeGitCommand runs a git command with timeout and returns the trimmed output
func (g *GitAdapter) executeGitCommand(ctx context.Context, args ...string) (string, error) {
	output, err := g.executeGitCommandRaw(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// executeGitCommandLines runs a git command and returns output as lines
func (g *GitAdapter) executeGitCommandLines(ctx context.Context, args ...string) ([]string, error) {
	output, err := g.executeGitCommand(ctx, args...)
	if err != nil {
		return nil, err
	}

	if output == "" {
		return []string{}, nil
	}

	lines := strings.Split(output, "\n")
	// Filter out empty lines
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result, nil
}
