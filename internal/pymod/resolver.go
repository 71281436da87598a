// Package pymod maps Python module names to files the way the import system
// would, without running an interpreter.
package pymod

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"autoskip/internal/paths"
	"autoskip/internal/slogutil"
)

// DefaultCacheSize bounds the lookup memo when no size is configured
const DefaultCacheSize = 4096

// extensionSuffixes are tried after source modules, in order
var extensionSuffixes = []string{".so", ".pyd"}

type lookup struct {
	path string
	ok   bool
}

// Resolver finds the file defining a dotted module name on a list of search
// paths. Lookups are memoized, so answers are stable for the resolver's lifetime.
type Resolver struct {
	searchPaths []string
	cache       *lru.Cache[string, lookup]
	logger      *slog.Logger
}

// NewResolver creates a resolver over searchPaths, searched in order
func NewResolver(searchPaths []string, cacheSize int, logger *slog.Logger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, lookup](cacheSize)
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool, len(searchPaths))
	for _, p := range searchPaths {
		real, err := paths.RealPath(p)
		if err != nil || seen[real] {
			continue
		}
		seen[real] = true
		dirs = append(dirs, real)
	}

	return &Resolver{
		searchPaths: dirs,
		cache:       cache,
		logger:      slogutil.OrDiscard(logger).With("component", "resolver"),
	}, nil
}

// SearchPaths returns the canonical search paths in lookup order
func (r *Resolver) SearchPaths() []string {
	out := make([]string, len(r.searchPaths))
	copy(out, r.searchPaths)
	return out
}

// Resolve returns the canonical file for name, or false if no search path
// provides one. Packages resolve to their __init__.py. A directory without
// __init__.py (namespace package) resolves to the directory itself, but only
// when no regular module or package exists on any path.
func (r *Resolver) Resolve(name string) (string, bool) {
	if cached, ok := r.cache.Get(name); ok {
		return cached.path, cached.ok
	}

	path, ok := r.find(name)
	if ok {
		if real, err := paths.RealPath(path); err == nil {
			path = real
		}
	}
	r.cache.Add(name, lookup{path: path, ok: ok})
	r.logger.Debug("Resolved module", "name", name, "path", path, "found", ok)
	return path, ok
}

func (r *Resolver) find(name string) (string, bool) {
	parts, ok := splitModuleName(name)
	if !ok {
		return "", false
	}

	namespace := ""
	for _, root := range r.searchPaths {
		base := filepath.Join(append([]string{root}, parts...)...)

		if init := filepath.Join(base, "__init__.py"); isFile(init) {
			return init, true
		}
		if src := base + ".py"; isFile(src) {
			return src, true
		}
		if ext, ok := findExtension(base); ok {
			return ext, true
		}
		if namespace == "" && isDir(base) {
			namespace = base
		}
	}

	if namespace != "" {
		return namespace, true
	}
	return "", false
}

// findExtension looks for a compiled module next to base: base.<tag>.so
// first, then the untagged suffixes.
func findExtension(base string) (string, bool) {
	dir, stem := filepath.Split(base)
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			n := entry.Name()
			if entry.IsDir() || len(n) <= len(stem)+len(".")+len(".so") {
				continue
			}
			if strings.HasPrefix(n, stem+".") && strings.HasSuffix(n, ".so") {
				return filepath.Join(dir, n), true
			}
		}
	}
	for _, suffix := range extensionSuffixes {
		if p := base + suffix; isFile(p) {
			return p, true
		}
	}
	return "", false
}

// splitModuleName rejects empty components and path syntax
func splitModuleName(name string) ([]string, bool) {
	if name == "" {
		return nil, false
	}
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, `/\`) {
			return nil, false
		}
	}
	return parts, true
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
