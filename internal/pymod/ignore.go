package pymod

import (
	"sort"
	"strings"
)

// alwaysIgnored are non-stdlib names the tool never follows
var alwaysIgnored = []string{"pytest", "_pytest", "__future__"}

// IgnoreSet holds module names that are never traversed.
// A name is ignored when it or any dotted prefix of it is in the set.
type IgnoreSet struct {
	names map[string]struct{}
}

// NewIgnoreSet returns the standard library plus pytest plus extra
func NewIgnoreSet(extra ...string) *IgnoreSet {
	s := &IgnoreSet{names: make(map[string]struct{}, len(stdlibModules)+len(alwaysIgnored)+len(extra))}
	for _, n := range stdlibModules {
		s.names[n] = struct{}{}
	}
	for _, n := range alwaysIgnored {
		s.names[n] = struct{}{}
	}
	for _, n := range extra {
		if n = strings.TrimSpace(n); n != "" {
			s.names[n] = struct{}{}
		}
	}
	return s
}

// Contains reports whether name is ignored
func (s *IgnoreSet) Contains(name string) bool {
	for {
		if _, ok := s.names[name]; ok {
			return true
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			return false
		}
		name = name[:i]
	}
}

// Len returns the number of entries
func (s *IgnoreSet) Len() int {
	return len(s.names)
}

// Names returns the entries, sorted
func (s *IgnoreSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
