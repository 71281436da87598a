package skip

import "sort"

// NameSet is a set of dependency names
type NameSet map[string]struct{}

// NewNameSet builds a set from names
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts names into the set
func (s NameSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Has reports whether name is in the set
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of names
func (s NameSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the members of names that are in the set, in the order given
func (s NameSet) Intersect(names []string) []string {
	var hits []string
	for _, n := range names {
		if s.Has(n) {
			hits = append(hits, n)
		}
	}
	return hits
}

// Graph records which names import which. Edges point from a dependency to
// its importers and are never removed.
type Graph struct {
	importedBy map[string]NameSet
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{importedBy: make(map[string]NameSet)}
}

// Touch ensures name has an entry, possibly with no importers
func (g *Graph) Touch(name string) {
	if _, ok := g.importedBy[name]; !ok {
		g.importedBy[name] = make(NameSet)
	}
}

// AddEdge records that parent imports child
func (g *Graph) AddEdge(child, parent string) {
	g.Touch(child)
	g.Touch(parent)
	g.importedBy[child].Add(parent)
}

// Has reports whether name has an entry
func (g *Graph) Has(name string) bool {
	_, ok := g.importedBy[name]
	return ok
}

// ImportedBy returns the direct importers of name, sorted
func (g *Graph) ImportedBy(name string) []string {
	return g.importedBy[name].Sorted()
}

// Len returns the number of names with an entry
func (g *Graph) Len() int {
	return len(g.importedBy)
}

// Closure returns name plus every transitive importer of it.
// Cycles terminate because each name is expanded once.
func (g *Graph) Closure(name string) NameSet {
	seen := NewNameSet(name)
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for parent := range g.importedBy[cur] {
			if seen.Has(parent) {
				continue
			}
			seen.Add(parent)
			queue = append(queue, parent)
		}
	}
	return seen
}

// ImportChain returns the shortest import path from -> ... -> to, where each
// element imports the next. Returns nil if no recorded path exists.
func (g *Graph) ImportChain(from, to string) []string {
	if from == to {
		return []string{from}
	}

	// Walk reverse edges from the dependency back towards the importer.
	next := map[string]string{to: ""}
	queue := []string{to}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, parent := range g.ImportedBy(cur) {
			if _, seen := next[parent]; seen {
				continue
			}
			next[parent] = cur
			if parent == from {
				chain := []string{from}
				for n := cur; n != ""; n = next[n] {
					chain = append(chain, n)
				}
				return chain
			}
			queue = append(queue, parent)
		}
	}
	return nil
}
