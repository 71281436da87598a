package pymod

import (
	"fmt"
	"path/filepath"
	"strings"

	"autoskip/internal/paths"
)

// ModuleName returns the dotted module name of a Python file and the directory
// pytest would put on sys.path for it (prepend import mode): the first parent
// directory that is not a package.
func ModuleName(file string) (module, root string, err error) {
	real, err := paths.RealPath(file)
	if err != nil {
		return "", "", err
	}
	if filepath.Ext(real) != ".py" {
		return "", "", fmt.Errorf("not a python source file: %s", file)
	}

	dir, base := filepath.Split(real)
	dir = filepath.Clean(dir)
	parts := []string{strings.TrimSuffix(base, ".py")}
	if parts[0] == "__init__" {
		parts = parts[:0]
	}

	for isFile(filepath.Join(dir, "__init__.py")) {
		parts = append(parts, filepath.Base(dir))
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if len(parts) == 0 {
		return "", "", fmt.Errorf("cannot derive module name for %s", file)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "."), dir, nil
}
