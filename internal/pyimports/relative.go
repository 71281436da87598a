package pyimports

import (
	"path/filepath"
	"strings"
)

// anchorPackage returns the dotted package a relative import with the given
// level refers to, for a file in fileDir. The package directory is fileDir
// walked up level-1 times; its name is the path from the nearest enclosing
// search path. Outside every search path only the directory's own name is used.
func anchorPackage(fileDir string, level int, searchPaths []string) string {
	pkgDir := filepath.Clean(fileDir)
	for i := 1; i < level; i++ {
		pkgDir = filepath.Dir(pkgDir)
	}

	roots := make(map[string]bool, len(searchPaths))
	for _, p := range searchPaths {
		roots[filepath.Clean(p)] = true
	}

	var parts []string
	dir := pkgDir
	for {
		parent, base := filepath.Split(dir)
		parent = filepath.Clean(parent)
		if base == "" || parent == dir {
			// Reached the filesystem root without meeting a search path.
			return filepath.Base(pkgDir)
		}
		parts = append([]string{base}, parts...)
		if roots[parent] {
			return strings.Join(parts, ".")
		}
		dir = parent
	}
}

// relativeModule joins an anchored package with the optional module part
// of "from .mod import x"
func relativeModule(pkg, module string) string {
	if module == "" {
		return pkg
	}
	if pkg == "" {
		return module
	}
	return pkg + "." + module
}

// countLevel returns the number of leading dots of an import prefix
func countLevel(prefix string) int {
	return strings.Count(prefix, ".")
}
