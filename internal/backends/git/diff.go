package git

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

// DiffPaths returns the repo-relative paths a unified git diff touches.
// Both sides of every file diff count, so deleted files are included.
func DiffPaths(diffContent string) ([]string, error) {
	if strings.TrimSpace(diffContent) == "" {
		return []string{}, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	seen := make(map[string]bool)
	for _, fd := range fileDiffs {
		oldPath, newPath := cleanPath(fd.OrigName), cleanPath(fd.NewName)

		// Binary, mode-only and empty-file diffs carry no ---/+++ lines;
		// the paths are only in the "diff --git" header.
		if oldPath == "" && newPath == "" {
			oldPath, newPath = headerPaths(fd.Extended)
		}

		for _, p := range []string{oldPath, newPath} {
			if p != "" {
				seen[p] = true
			}
		}
	}

	result := make([]string, 0, len(seen))
	for p := range seen {
		result = append(result, p)
	}
	sort.Strings(result)
	return result, nil
}

// cleanPath removes quoting and the a/ or b/ prefix from git diff paths
func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == devNull {
		return ""
	}
	if strings.HasPrefix(path, `"`) {
		if unquoted, err := strconv.Unquote(path); err == nil {
			path = unquoted
		}
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

// headerPaths extracts both paths from a "diff --git a/x b/y" extended header
func headerPaths(extended []string) (string, string) {
	for _, line := range extended {
		rest, ok := strings.CutPrefix(line, "diff --git ")
		if !ok {
			continue
		}

		// Without renames both sides name the same file: "a/P b/P".
		if n := (len(rest) - 1) / 2; len(rest)%2 == 1 && rest[n] == ' ' {
			left, right := rest[:n], rest[n+1:]
			if strings.HasPrefix(left, "a/") && strings.HasPrefix(right, "b/") && left[2:] == right[2:] {
				return left[2:], right[2:]
			}
		}

		if i := strings.LastIndex(rest, " b/"); i > 0 {
			return cleanPath(rest[:i]), cleanPath(rest[i+1:])
		}
		if i := strings.LastIndex(rest, ` "b/`); i > 0 {
			return cleanPath(rest[:i]), cleanPath(rest[i+1:])
		}
	}
	return "", ""
}
