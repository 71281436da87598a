// Package skip decides whether a test module can be skipped because nothing in
// its transitive import closure changed since a baseline.
//
// An Engine is built once per session from the changed-file set and two
// collaborators: a Resolver that maps dotted module names to files and an
// Extractor that lists the names a file imports. Each Evaluate call walks the
// import graph breadth-first, building it lazily and reusing everything learned
// by earlier calls:
//
//   - the reverse edges recorded so far (Graph)
//   - the forward import lists of every file already parsed
//   - the set of names known to be real modules (confirmed)
//   - the must-run cache, which short-circuits any walk that reaches it
//
// When a walk hits a changed file (or an unresolvable name that cannot be
// ignored) the trigger and every transitive importer of it are added to the
// must-run cache, so later tests sharing that subgraph answer immediately.
//
// Basic usage:
//
//	engine := skip.NewEngine(skip.Config{
//	    ChangedFiles: changed,
//	    SafeMode:     false,
//	    Ignored:      ignoreSet.Contains,
//	}, resolver, extractor, logger)
//
//	decision, err := engine.Evaluate("tests.test_api")
//	if err != nil {
//	    return err
//	}
//	if !decision.Run {
//	    fmt.Println("skipped")
//	}
//
// The engine is not safe for concurrent use; a session drives it sequentially.
package skip
