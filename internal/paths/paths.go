package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DataDirName is the per-repository directory holding autoskip state
	DataDirName = ".autoskip"

	// ConfigFileName is the JSON config file inside DataDirName
	ConfigFileName = "config.json"

	// DatabaseFileName is the SQLite history database inside DataDirName
	DatabaseFileName = "autoskip.db"
)

// GetDataDir returns <repoRoot>/.autoskip
func GetDataDir(repoRoot string) string {
	return filepath.Join(repoRoot, DataDirName)
}

// EnsureDataDir creates <repoRoot>/.autoskip if needed and returns it
func EnsureDataDir(repoRoot string) (string, error) {
	dir := GetDataDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetConfigPath returns the path of the repository config file
func GetConfigPath(repoRoot string) string {
	return filepath.Join(GetDataDir(repoRoot), ConfigFileName)
}

// GetDatabasePath returns the path of the history database
func GetDatabasePath(repoRoot string) string {
	return filepath.Join(GetDataDir(repoRoot), DatabaseFileName)
}

// RealPath returns the absolute, symlink-resolved form of path.
// Paths that do not exist (deleted files) are resolved through their
// nearest existing parent so that they still compare equal to live paths.
func RealPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	parent, base := filepath.Split(abs)
	parent = filepath.Clean(parent)
	if parent == abs {
		return abs, nil
	}
	resolvedParent, err := RealPath(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, base), nil
}

// CanonicalizePath converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to repo root
// - Converts backslashes to forward slashes
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := RealPath(absolutePath)
	if err != nil {
		return "", err
	}

	repoRootResolved, err := RealPath(repoRoot)
	if err != nil {
		return "", err
	}

	relativePath, err := filepath.Rel(repoRootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// DisplayPath returns the repo-relative form of path when it lies inside
// repoRoot, and path unchanged otherwise.
func DisplayPath(path string, repoRoot string) string {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil || strings.HasPrefix(canonical, "..") {
		return path
	}
	return canonical
}
