package skip

import "errors"

// ErrMalformedSource is wrapped by extractors when a file cannot be parsed.
// The engine propagates it instead of guessing at the file's imports.
var ErrMalformedSource = errors.New("malformed source")

// Resolver maps a dotted dependency name to a canonical file path.
// ok is false when the name has no file (missing module, builtin, attribute).
// Answers must be stable for the lifetime of an engine.
type Resolver interface {
	Resolve(name string) (path string, ok bool)
}

// Extractor lists the dependency names referenced by one source file.
// names holds every dependency; confirmed is the subset guaranteed to be a
// module by the syntax alone. Implementations never execute the file.
type Extractor interface {
	Extract(path string) (names, confirmed []string, err error)
}

// ResolutionKind tags the outcome of resolving a dependency name
type ResolutionKind int

const (
	// Resolved means the name maps to a file
	Resolved ResolutionKind = iota
	// ConfirmedMissing means the name is a known module with no file
	ConfirmedMissing
	// Unresolved means the name has no file and may not be a module at all
	Unresolved
)

func (k ResolutionKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case ConfirmedMissing:
		return "confirmed-missing"
	case Unresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Resolution is the tagged result of resolving one name
type Resolution struct {
	Kind ResolutionKind
	Path string // set only when Kind is Resolved
}

// Reason explains why a test must run
type Reason string

const (
	// ReasonChanged means the closure reaches a changed file
	ReasonChanged Reason = "changed"
	// ReasonCached means the closure reaches a name already known to force a run
	ReasonCached Reason = "cached"
	// ReasonUnresolved means safe mode met a name with no file
	ReasonUnresolved Reason = "unresolved"
	// ReasonConfirmedMissing means a confirmed module has no file
	ReasonConfirmedMissing Reason = "confirmed-missing"
)

// Decision is the answer for one root
type Decision struct {
	Run     bool   `json:"run" yaml:"run"`
	Trigger string `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Reason  Reason `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Stats counts engine work over a session
type Stats struct {
	Evaluations  int `json:"evaluations" yaml:"evaluations"`
	Resolutions  int `json:"resolutions" yaml:"resolutions"`
	Extractions  int `json:"extractions" yaml:"extractions"`
	MemoHits     int `json:"memoHits" yaml:"memoHits"`
	CacheHits    int `json:"cacheHits" yaml:"cacheHits"`
	ForcedRuns   int `json:"forcedRuns" yaml:"forcedRuns"`
	GraphNodes   int `json:"graphNodes" yaml:"graphNodes"`
	MustRunNames int `json:"mustRunNames" yaml:"mustRunNames"`
}
