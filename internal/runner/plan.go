package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"autoskip/internal/config"
	"autoskip/internal/errors"
	"autoskip/internal/paths"
	"autoskip/internal/pyimports"
	"autoskip/internal/pymod"
	"autoskip/internal/skip"
	"autoskip/internal/slogutil"
)

// ChangedSetProvider returns the canonical paths changed since base
type ChangedSetProvider interface {
	ChangedFiles(ctx context.Context, base string, includeUncommitted bool) ([]string, error)
}

// Unavailable is a ChangedSetProvider that always fails with err. It stands in
// for git when the repository could not be opened.
func Unavailable(err error) ChangedSetProvider {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) ChangedFiles(context.Context, string, bool) ([]string, error) {
	return nil, u.err
}

// ExtractorFactory builds the import extractor for one session
type ExtractorFactory func(searchPaths []string, logger *slog.Logger) skip.Extractor

// Option configures a Runner
type Option func(*Runner)

// WithExtractorFactory replaces the tree-sitter extractor
func WithExtractorFactory(f ExtractorFactory) Option {
	return func(r *Runner) { r.newExtractor = f }
}

// WithInterpreterPaths replaces the interpreter sys.path query
func WithInterpreterPaths(f func(ctx context.Context) ([]string, error)) Option {
	return func(r *Runner) { r.interpreterPaths = f }
}

// Runner plans sessions for one repository
type Runner struct {
	repoRoot         string
	cfg              *config.Config
	changes          ChangedSetProvider
	newExtractor     ExtractorFactory
	interpreterPaths func(ctx context.Context) ([]string, error)
	logger           *slog.Logger
}

// New creates a runner. cfg must already be validated.
func New(repoRoot string, cfg *config.Config, changes ChangedSetProvider, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		repoRoot: repoRoot,
		cfg:      cfg,
		changes:  changes,
		logger:   slogutil.OrDiscard(logger).With("component", "runner"),
	}
	r.newExtractor = func(searchPaths []string, logger *slog.Logger) skip.Extractor {
		return pyimports.NewExtractor(searchPaths, logger)
	}
	r.interpreterPaths = func(ctx context.Context) ([]string, error) {
		ctx, cancel := context.WithTimeout(ctx, pymod.DefaultInterpreterTimeout)
		defer cancel()
		return pymod.InterpreterPaths(ctx, cfg.Interpreter.Command, repoRoot)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TestDecision is the outcome for one test module
type TestDecision struct {
	Path    string      `json:"path" yaml:"path"`
	Module  string      `json:"module" yaml:"module"`
	Run     bool        `json:"run" yaml:"run"`
	Reason  skip.Reason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Trigger string      `json:"trigger,omitempty" yaml:"trigger,omitempty"`

	// File is the canonical absolute path handed to pytest
	File string `json:"-" yaml:"-"`
}

// Summary counts the decisions of a plan
type Summary struct {
	Total   int `json:"total" yaml:"total"`
	Run     int `json:"run" yaml:"run"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Plan is the result of one planning session
type Plan struct {
	SessionID      string         `json:"sessionId" yaml:"sessionId"`
	StartedAt      time.Time      `json:"startedAt" yaml:"startedAt"`
	Base           string         `json:"base" yaml:"base"`
	SafeMode       bool           `json:"safeMode" yaml:"safeMode"`
	Enabled        bool           `json:"enabled" yaml:"enabled"`
	DisabledReason string         `json:"disabledReason,omitempty" yaml:"disabledReason,omitempty"`
	ChangedFiles   int            `json:"changedFiles" yaml:"changedFiles"`
	Summary        Summary        `json:"summary" yaml:"summary"`
	Tests          []TestDecision `json:"tests" yaml:"tests"`
	Stats          *skip.Stats    `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// ToRun returns the canonical paths of the tests that must run
func (p *Plan) ToRun() []string {
	var out []string
	for _, t := range p.Tests {
		if t.Run {
			out = append(out, t.File)
		}
	}
	return out
}

// testModule is a discovered test file with its import identity
type testModule struct {
	file   string
	module string
	root   string
}

// session is everything one engine instance needs
type session struct {
	engine   *skip.Engine
	resolver *pymod.Resolver
	changed  int
}

// Plan discovers the test modules under testPaths (config discovery paths when
// empty) and decides for each whether it must run.
func (r *Runner) Plan(ctx context.Context, testPaths []string) (*Plan, error) {
	tests, err := r.discover(ctx, testPaths)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		SessionID: uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Base:      r.cfg.BaseRef,
		SafeMode:  r.cfg.SafeMode,
		Enabled:   r.cfg.Enabled,
		Tests:     make([]TestDecision, 0, len(tests)),
	}

	sess, reason, err := r.open(ctx, tests)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		plan.Enabled = false
		plan.DisabledReason = reason
		for _, t := range tests {
			plan.Tests = append(plan.Tests, r.decision(t, skip.Decision{Run: true}))
		}
		plan.Summary = summarize(plan.Tests)
		return plan, nil
	}
	plan.ChangedFiles = sess.changed

	for _, t := range tests {
		d, err := r.evaluate(sess, t)
		if err != nil {
			return nil, err
		}
		plan.Tests = append(plan.Tests, r.decision(t, d))
	}

	stats := sess.engine.Stats()
	plan.Stats = &stats
	plan.Summary = summarize(plan.Tests)

	r.logger.Info("Planned session",
		"session", plan.SessionID,
		"total", plan.Summary.Total,
		"run", plan.Summary.Run,
		"skipped", plan.Summary.Skipped,
		"resolutions", stats.Resolutions,
		"extractions", stats.Extractions,
	)
	return plan, nil
}

func (r *Runner) discover(ctx context.Context, testPaths []string) ([]testModule, error) {
	if len(testPaths) == 0 {
		testPaths = r.cfg.Discovery.TestPaths
	}
	d := Discovery{Root: r.repoRoot, Patterns: r.cfg.Discovery.Patterns, Exclude: r.cfg.Discovery.Exclude}
	files, err := d.Discover(ctx, config.ResolvePaths(r.repoRoot, testPaths))
	if err != nil {
		return nil, err
	}

	tests := make([]testModule, 0, len(files))
	for _, f := range files {
		module, root, err := pymod.ModuleName(f)
		if err != nil {
			return nil, err
		}
		tests = append(tests, testModule{file: f, module: module, root: root})
	}
	r.logger.Debug("Discovered test modules", "count", len(tests))
	return tests, nil
}

// open builds the engine for one session. A nil session with a reason means
// skipping is off and every test runs.
func (r *Runner) open(ctx context.Context, tests []testModule) (*session, string, error) {
	if !r.cfg.Enabled {
		return nil, "disabled by configuration", nil
	}

	changed, err := r.changes.ChangedFiles(ctx, r.cfg.BaseRef, r.cfg.IncludeUncommitted)
	if err != nil {
		r.logger.Warn("Changed files unavailable, running all tests",
			"base", r.cfg.BaseRef,
			"error", err.Error(),
		)
		return nil, err.Error(), nil
	}

	resolver, err := pymod.NewResolver(r.searchPaths(ctx, tests), r.cfg.Resolver.CacheSize, r.logger)
	if err != nil {
		return nil, "", errors.New(errors.InternalError, "failed to create module resolver", err, nil)
	}
	ignore := pymod.NewIgnoreSet(r.cfg.Ignore...)

	engine := skip.NewEngine(skip.Config{
		ChangedFiles: changed,
		SafeMode:     r.cfg.SafeMode,
		Ignored:      ignore.Contains,
	}, resolver, r.newExtractor(resolver.SearchPaths(), r.logger), r.logger)

	return &session{engine: engine, resolver: resolver, changed: len(changed)}, "", nil
}

// searchPaths orders import roots the way the test process sees them: test
// roots first, then configured paths, then the interpreter's sys.path.
func (r *Runner) searchPaths(ctx context.Context, tests []testModule) []string {
	var dirs []string
	for _, t := range tests {
		dirs = append(dirs, t.root)
	}
	dirs = append(dirs, config.ResolvePaths(r.repoRoot, r.cfg.SearchPaths)...)

	if r.cfg.Interpreter.Enabled {
		extra, err := r.interpreterPaths(ctx)
		if err != nil {
			r.logger.Warn("Could not query interpreter search paths", "error", err.Error())
		} else {
			dirs = append(dirs, extra...)
		}
	}
	return config.ResolvePaths(r.repoRoot, dirs)
}

// evaluate asks the engine about one test module. A module name that resolves
// to another file (two rootless test files with the same name) is not
// analysable and always runs.
func (r *Runner) evaluate(sess *session, t testModule) (skip.Decision, error) {
	if t.file != "" {
		if path, ok := sess.resolver.Resolve(t.module); !ok || path != t.file {
			r.logger.Warn("Test module does not resolve to its own file",
				"module", t.module,
				"file", t.file,
				"resolved", path,
			)
			return skip.Decision{Run: true, Trigger: t.module, Reason: skip.ReasonUnresolved}, nil
		}
	}

	d, err := sess.engine.Evaluate(t.module)
	if err != nil {
		if stderrors.Is(err, skip.ErrMalformedSource) {
			return skip.Decision{}, errors.New(errors.MalformedSource,
				fmt.Sprintf("cannot analyse imports of %s", t.module), err, nil)
		}
		if stderrors.Is(err, pyimports.ErrNoCGO) {
			return skip.Decision{}, errors.New(errors.InternalError,
				"import extraction is unavailable in this build", err, nil)
		}
		return skip.Decision{}, errors.New(errors.InternalError,
			fmt.Sprintf("failed to evaluate %s", t.module), err, nil)
	}
	return d, nil
}

func (r *Runner) decision(t testModule, d skip.Decision) TestDecision {
	return TestDecision{
		Path:    paths.DisplayPath(t.file, r.repoRoot),
		Module:  t.module,
		Run:     d.Run,
		Reason:  d.Reason,
		Trigger: d.Trigger,
		File:    t.file,
	}
}

func summarize(tests []TestDecision) Summary {
	s := Summary{Total: len(tests)}
	for _, t := range tests {
		if t.Run {
			s.Run++
		} else {
			s.Skipped++
		}
	}
	return s
}
