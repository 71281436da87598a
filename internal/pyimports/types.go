// Package pyimports extracts the modules a Python file imports, statically.
//
// Every import at every scope counts, including those inside functions,
// classes and try blocks. For each file the extractor reports all dependency
// names plus the subset that is certainly a module:
//
//	import a.b.c          # a, a.b, a.b.c: all confirmed
//	from m import x, y    # m confirmed; m.x, m.y are candidates
//	from . import z       # the enclosing package confirmed; pkg.z a candidate
//
// Candidates may turn out to be attributes rather than modules; the caller
// decides what an unresolvable candidate means.
package pyimports

import (
	"errors"
	"sort"
	"strings"
)

// ErrNoCGO is returned when import extraction is unavailable due to missing CGO.
var ErrNoCGO = errors.New("import extraction requires CGO (tree-sitter)")

// Imports accumulates dependency names for one file
type Imports struct {
	deps map[string]bool // name -> confirmed
}

func newImports() *Imports {
	return &Imports{deps: make(map[string]bool)}
}

// addModule records name and each parent package as confirmed modules
func (im *Imports) addModule(name string) {
	parts := strings.Split(name, ".")
	for i := range parts {
		prefix := strings.Join(parts[:i+1], ".")
		if prefix == "" {
			continue
		}
		im.deps[prefix] = true
	}
}

// addCandidate records a name that may be a module or an attribute
func (im *Imports) addCandidate(name string) {
	if _, ok := im.deps[name]; !ok {
		im.deps[name] = false
	}
}

// Names returns every dependency name, sorted
func (im *Imports) Names() []string {
	out := make([]string, 0, len(im.deps))
	for n := range im.deps {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Confirmed returns the names known to be modules, sorted
func (im *Imports) Confirmed() []string {
	out := make([]string, 0, len(im.deps))
	for n, confirmed := range im.deps {
		if confirmed {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
