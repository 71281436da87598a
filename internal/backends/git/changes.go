package git

import (
	"context"
	"path/filepath"
	"sort"

	"autoskip/internal/errors"
	"autoskip/internal/paths"
)

// diffArgs produce a plain unified diff whatever the user's git config says
var diffArgs = []string{
	"diff", "--no-color", "--no-ext-diff", "--no-renames", "--unified=0",
	"--src-prefix=a/", "--dst-prefix=b/",
}

// MergeBase returns the merge base of base and HEAD
func (g *GitAdapter) MergeBase(ctx context.Context, base string) (string, error) {
	sha, err := g.executeGitCommand(ctx, "merge-base", base, "HEAD")
	if err != nil {
		return "", errors.New(
			errors.ChangedSetUnavailable,
			"Cannot find merge base with "+base,
			err,
			nil,
		).WithDetails(map[string]interface{}{"base": base})
	}
	return sha, nil
}

// ChangedFiles returns the canonical absolute paths modified between the
// merge base of base and HEAD. With includeUncommitted, staged, unstaged and
// untracked files are added too.
func (g *GitAdapter) ChangedFiles(ctx context.Context, base string, includeUncommitted bool) ([]string, error) {
	sha, err := g.MergeBase(ctx, base)
	if err != nil {
		return nil, err
	}

	rel, err := g.diffPaths(ctx, append(append([]string{}, diffArgs...), sha, "HEAD")...)
	if err != nil {
		return nil, err
	}

	if includeUncommitted {
		working, err := g.diffPaths(ctx, append(append([]string{}, diffArgs...), "HEAD")...)
		if err != nil {
			return nil, err
		}
		rel = append(rel, working...)

		untracked, err := g.UntrackedFiles(ctx)
		if err != nil {
			return nil, err
		}
		rel = append(rel, untracked...)
	}

	result := g.absolutize(rel)
	g.logger.Debug("Computed changed set",
		"base", base,
		"mergeBase", sha,
		"files", len(result),
		"includeUncommitted", includeUncommitted,
	)
	return result, nil
}

// UntrackedFiles returns repo-relative paths of untracked, non-ignored files
func (g *GitAdapter) UntrackedFiles(ctx context.Context) ([]string, error) {
	lines, err := g.executeGitCommandLines(ctx, "ls-files", "--others", "--exclude-standard", "--full-name")
	if err != nil {
		return nil, errors.New(errors.ChangedSetUnavailable, "Cannot list untracked files", err, nil)
	}
	return lines, nil
}

func (g *GitAdapter) diffPaths(ctx context.Context, args ...string) ([]string, error) {
	out, err := g.executeGitCommandRaw(ctx, args...)
	if err != nil {
		return nil, errors.New(errors.ChangedSetUnavailable, "git diff failed", err, nil)
	}
	rel, err := DiffPaths(out)
	if err != nil {
		return nil, errors.New(errors.ChangedSetUnavailable, "Cannot parse git diff output", err, nil)
	}
	return rel, nil
}

// absolutize joins repo-relative paths to the top level, resolves symlinks
// and returns the sorted, deduplicated result
func (g *GitAdapter) absolutize(rel []string) []string {
	seen := make(map[string]bool, len(rel))
	result := make([]string, 0, len(rel))
	for _, p := range rel {
		abs := filepath.Join(g.repoRoot, filepath.FromSlash(p))
		if real, err := paths.RealPath(abs); err == nil {
			abs = real
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		result = append(result, abs)
	}
	sort.Strings(result)
	return result
}
