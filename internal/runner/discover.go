// Package runner turns a set of test paths into a session plan: it discovers
// test modules, obtains the changed set, asks the skip engine about each module
// and optionally hands the modules that must run to pytest.
package runner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"autoskip/internal/paths"
)

// Discovery selects test files under a set of roots
type Discovery struct {
	// Root anchors path-shaped Exclude entries; each walk root when empty
	Root string
	// Patterns match test file base names (test_*.py)
	Patterns []string
	// Exclude matches directory base names or repo-relative paths never descended into
	Exclude []string
}

// Discover walks every root concurrently and returns the canonical paths of the
// test files found, sorted and without duplicates. A root that is a file is
// taken as given as long as it is Python source.
func (d Discovery) Discover(ctx context.Context, roots []string) ([]string, error) {
	found := make([][]string, len(roots))

	g, gCtx := errgroup.WithContext(ctx)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			files, err := d.walk(gCtx, root)
			if err != nil {
				return err
			}
			found[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for _, files := range found {
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (d Discovery) walk(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path %s: %w", root, err)
	}
	if !info.IsDir() {
		if filepath.Ext(root) != ".py" {
			return nil, fmt.Errorf("test path %s is not a python file", root)
		}
		real, err := paths.RealPath(root)
		if err != nil {
			return nil, err
		}
		return []string{real}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if path != root && d.isExcluded(root, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if !d.isTestFile(entry.Name()) {
			return nil
		}
		real, err := paths.RealPath(path)
		if err != nil {
			// Dangling symlink
			return nil
		}
		files = append(files, real)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (d Discovery) isTestFile(name string) bool {
	if filepath.Ext(name) != ".py" {
		return false
	}
	for _, pattern := range d.Patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// isExcluded matches a directory against Exclude, by base name or by its
// slash-separated path relative to Root.
func (d Discovery) isExcluded(root, dir string) bool {
	if d.Root != "" {
		root = d.Root
	}
	base := filepath.Base(dir)
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = dir
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range d.Exclude {
		pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/")
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}
