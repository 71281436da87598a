package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"autoskip/internal/errors"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_CONFIG_NOSYSTEM=1", "GIT_CONFIG_GLOBAL="+os.DevNull,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// setupTestRepo creates a repository with a "main" branch and a checked-out
// "feature" branch that modifies, adds, deletes and renames files.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	runGit(t, root, "init", "-q")
	runGit(t, root, "symbolic-ref", "HEAD", "refs/heads/main")
	writeRepoFile(t, root, "app/__init__.py", "")
	writeRepoFile(t, root, "app/core.py", "x = 1\n")
	writeRepoFile(t, root, "app/old.py", "import os\n")
	writeRepoFile(t, root, "app/moved.py", "y = 2\n")
	writeRepoFile(t, root, "tests/test_core.py", "import app.core\n")
	runGit(t, root, "add", "-A")
	runGit(t, root, "commit", "-q", "-m", "base")

	runGit(t, root, "checkout", "-q", "-b", "feature")
	writeRepoFile(t, root, "app/core.py", "x = 2\n")
	writeRepoFile(t, root, "app/new.py", "import app.core\n")
	runGit(t, root, "rm", "-q", "app/old.py")
	runGit(t, root, "mv", "app/moved.py", "app/renamed.py")
	runGit(t, root, "add", "-A")
	runGit(t, root, "commit", "-q", "-m", "feature work")

	return root
}

func newAdapter(t *testing.T, dir string) *GitAdapter {
	t.Helper()
	adapter, err := NewGitAdapter(dir, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("NewGitAdapter() error = %v", err)
	}
	return adapter
}

func abs(root string, rel ...string) []string {
	out := make([]string, 0, len(rel))
	for _, r := range rel {
		out = append(out, filepath.Join(root, filepath.FromSlash(r)))
	}
	return out
}

func TestGitAdapter_RepoRoot(t *testing.T) {
	root := setupTestRepo(t)

	adapter := newAdapter(t, filepath.Join(root, "tests"))
	if adapter.RepoRoot() != root {
		t.Errorf("RepoRoot() = %q, want top level %q", adapter.RepoRoot(), root)
	}
}

func TestGitAdapter_NotARepository(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))

	_, err := NewGitAdapter(dir, time.Second, nil)
	if err == nil {
		t.Fatal("expected error outside a repository")
	}
	if got := errors.CodeOf(err); got != errors.GitUnavailable {
		t.Errorf("CodeOf() = %q, want %q", got, errors.GitUnavailable)
	}
}

func TestGitAdapter_ChangedFiles(t *testing.T) {
	root := setupTestRepo(t)
	adapter := newAdapter(t, root)

	got, err := adapter.ChangedFiles(context.Background(), "main", false)
	if err != nil {
		t.Fatalf("ChangedFiles() error = %v", err)
	}

	want := abs(root, "app/core.py", "app/moved.py", "app/new.py", "app/old.py", "app/renamed.py")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ChangedFiles() = %v, want %v", got, want)
	}
}

func TestGitAdapter_ChangedFilesUsesMergeBase(t *testing.T) {
	root := setupTestRepo(t)

	// Commits landing on main after the branch point are not ours.
	runGit(t, root, "checkout", "-q", "main")
	writeRepoFile(t, root, "tests/test_core.py", "import app\n")
	runGit(t, root, "commit", "-q", "-am", "upstream change")
	runGit(t, root, "checkout", "-q", "feature")

	adapter := newAdapter(t, root)
	got, err := adapter.ChangedFiles(context.Background(), "main", false)
	if err != nil {
		t.Fatalf("ChangedFiles() error = %v", err)
	}
	for _, p := range got {
		if p == filepath.Join(root, "tests", "test_core.py") {
			t.Errorf("upstream-only change %s should not be in the changed set", p)
		}
	}
}

func TestGitAdapter_ChangedFilesUncommitted(t *testing.T) {
	root := setupTestRepo(t)
	writeRepoFile(t, root, "tests/test_core.py", "import app.new\n")
	writeRepoFile(t, root, "app/scratch.py", "")
	writeRepoFile(t, root, "app/staged.py", "z = 3\n")
	runGit(t, root, "add", "app/staged.py")

	adapter := newAdapter(t, root)

	committed, err := adapter.ChangedFiles(context.Background(), "main", false)
	if err != nil {
		t.Fatalf("ChangedFiles() error = %v", err)
	}
	if len(committed) != 5 {
		t.Errorf("committed changes = %v, want 5 entries", committed)
	}

	got, err := adapter.ChangedFiles(context.Background(), "main", true)
	if err != nil {
		t.Fatalf("ChangedFiles(includeUncommitted) error = %v", err)
	}
	want := abs(root,
		"app/core.py", "app/moved.py", "app/new.py", "app/old.py", "app/renamed.py",
		"app/scratch.py", "app/staged.py", "tests/test_core.py",
	)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ChangedFiles(includeUncommitted) = %v, want %v", got, want)
	}
}

func TestGitAdapter_ChangedFilesIgnoresPrefixConfig(t *testing.T) {
	configs := map[string][]string{
		"mnemonic prefix": {"diff.mnemonicPrefix", "true"},
		"no prefix":       {"diff.noprefix", "true"},
	}

	for name, kv := range configs {
		t.Run(name, func(t *testing.T) {
			root := setupTestRepo(t)
			// A top-level "b" directory must survive prefix stripping.
			writeRepoFile(t, root, "b/helpers.py", "")
			runGit(t, root, "add", "b/helpers.py")
			runGit(t, root, "commit", "-q", "-m", "helpers")
			runGit(t, root, "config", kv[0], kv[1])
			writeRepoFile(t, root, "b/helpers.py", "import app\n")

			got, err := newAdapter(t, root).ChangedFiles(context.Background(), "main", true)
			if err != nil {
				t.Fatalf("ChangedFiles() error = %v", err)
			}
			want := abs(root,
				"app/core.py", "app/moved.py", "app/new.py", "app/old.py", "app/renamed.py",
				"b/helpers.py",
			)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ChangedFiles() = %v, want %v", got, want)
			}
		})
	}
}

func TestGitAdapter_UnknownBase(t *testing.T) {
	root := setupTestRepo(t)
	adapter := newAdapter(t, root)

	_, err := adapter.ChangedFiles(context.Background(), "origin/does-not-exist", false)
	if err == nil {
		t.Fatal("expected error for unknown base")
	}
	if got := errors.CodeOf(err); got != errors.ChangedSetUnavailable {
		t.Errorf("CodeOf() = %q, want %q", got, errors.ChangedSetUnavailable)
	}
}

func TestGitAdapter_MergeBase(t *testing.T) {
	root := setupTestRepo(t)
	adapter := newAdapter(t, root)

	sha, err := adapter.MergeBase(context.Background(), "main")
	if err != nil {
		t.Fatalf("MergeBase() error = %v", err)
	}
	if len(sha) != 40 {
		t.Errorf("MergeBase() = %q, want a full sha", sha)
	}
}
