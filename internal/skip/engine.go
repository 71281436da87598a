package skip

import (
	"fmt"
	"log/slog"

	"autoskip/internal/slogutil"
)

// Config holds the per-session inputs of an Engine
type Config struct {
	// ChangedFiles are canonical absolute paths modified since the baseline
	ChangedFiles []string

	// SafeMode forces a run whenever a name cannot be resolved
	SafeMode bool

	// Ignored reports names that are never traversed (stdlib, pytest).
	// Nil ignores nothing.
	Ignored func(name string) bool
}

// Engine answers "must this root run?" for one session, reusing the graph,
// the parsed imports and the must-run cache across calls.
type Engine struct {
	changed   NameSet
	safeMode  bool
	ignored   func(string) bool
	resolver  Resolver
	extractor Extractor
	logger    *slog.Logger

	graph     *Graph
	imports   map[string][]string // forward memo of every expanded name
	confirmed NameSet
	mustRun   NameSet
	stats     Stats
}

// NewEngine creates an engine over a fixed changed-file set
func NewEngine(cfg Config, resolver Resolver, extractor Extractor, logger *slog.Logger) *Engine {
	ignored := cfg.Ignored
	if ignored == nil {
		ignored = func(string) bool { return false }
	}
	return &Engine{
		changed:   NewNameSet(cfg.ChangedFiles...),
		safeMode:  cfg.SafeMode,
		ignored:   ignored,
		resolver:  resolver,
		extractor: extractor,
		logger:    slogutil.OrDiscard(logger).With("component", "skip"),
		graph:     NewGraph(),
		imports:   make(map[string][]string),
		confirmed: make(NameSet),
		mustRun:   make(NameSet),
	}
}

// ShouldRun reports whether root's import closure reaches a change
func (e *Engine) ShouldRun(root string) (bool, error) {
	d, err := e.Evaluate(root)
	if err != nil {
		return false, err
	}
	return d.Run, nil
}

// Evaluate walks root's import closure breadth-first and returns the decision.
// A forced run adds the trigger and all of its importers to the must-run cache.
// Extraction failures abort the walk and are returned wrapped.
func (e *Engine) Evaluate(root string) (Decision, error) {
	e.stats.Evaluations++
	e.graph.Touch(root)

	queue := []string{root}
	wave := []string{root}
	visited := make(NameSet)

	for len(queue) > 0 {
		// Names enqueued by the last expansion are checked against the cache
		// before anything else is dequeued.
		if hits := e.mustRun.Intersect(wave); len(hits) > 0 {
			for _, hit := range hits {
				e.MarkAsRun(hit)
			}
			e.stats.CacheHits++
			e.logger.Debug("Must-run cache hit", "root", root, "trigger", hits[0])
			return Decision{Run: true, Trigger: hits[0], Reason: ReasonCached}, nil
		}
		wave = nil

		name := queue[0]
		queue = queue[1:]
		if visited.Has(name) || e.ignored(name) {
			continue
		}

		// Only expanded names are visited. A skipped candidate may be
		// confirmed by a later file and must then be checked again.
		if children, ok := e.imports[name]; ok {
			visited.Add(name)
			e.stats.MemoHits++
			queue = append(queue, children...)
			wave = children
			continue
		}

		res := e.resolve(name)
		var reason Reason
		switch res.Kind {
		case ConfirmedMissing:
			reason = ReasonConfirmedMissing
		case Unresolved:
			if !e.safeMode {
				e.logger.Debug("Skipping unresolved candidate", "name", name)
				continue
			}
			reason = ReasonUnresolved
		case Resolved:
			if e.changed.Has(res.Path) {
				reason = ReasonChanged
			}
		}
		if reason != "" {
			e.MarkAsRun(name)
			e.stats.ForcedRuns++
			e.logger.Debug("Forced run", "root", root, "trigger", name, "reason", string(reason))
			return Decision{Run: true, Trigger: name, Reason: reason}, nil
		}

		children, err := e.expand(name, res.Path)
		if err != nil {
			return Decision{}, err
		}
		visited.Add(name)
		queue = append(queue, children...)
		wave = children
	}

	e.logger.Debug("No changes in closure", "root", root, "visited", visited.Len())
	return Decision{}, nil
}

// resolve classifies name. A missing name is ConfirmedMissing only if some
// already parsed file proved it is a module.
func (e *Engine) resolve(name string) Resolution {
	e.stats.Resolutions++
	if path, ok := e.resolver.Resolve(name); ok {
		return Resolution{Kind: Resolved, Path: path}
	}
	if e.confirmed.Has(name) {
		return Resolution{Kind: ConfirmedMissing}
	}
	return Resolution{Kind: Unresolved}
}

// expand parses the file behind name once, records reverse edges and the
// forward memo, and returns the imported names in sorted order.
func (e *Engine) expand(name, path string) ([]string, error) {
	e.stats.Extractions++
	names, confirmed, err := e.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extract imports of %s: %w", name, err)
	}

	children := NewNameSet(names...).Sorted()
	for _, child := range children {
		e.graph.AddEdge(child, name)
	}
	e.confirmed.Add(confirmed...)
	e.imports[name] = children
	return children, nil
}

// MarkAsRun adds name and every transitive importer of it to the must-run cache
func (e *Engine) MarkAsRun(name string) {
	for n := range e.graph.Closure(name) {
		e.mustRun.Add(n)
	}
}

// MustRun returns the must-run cache, sorted
func (e *Engine) MustRun() []string {
	return e.mustRun.Sorted()
}

// Imports returns the memoized imports of name and whether it was expanded
func (e *Engine) Imports(name string) ([]string, bool) {
	children, ok := e.imports[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(children))
	copy(out, children)
	return out, true
}

// Graph exposes the reverse-edge graph built so far
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Stats returns counters for the session so far
func (e *Engine) Stats() Stats {
	s := e.stats
	s.GraphNodes = e.graph.Len()
	s.MustRunNames = e.mustRun.Len()
	return s
}
