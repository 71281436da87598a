package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autoskip/internal/paths"
	"autoskip/internal/pymod"
	"autoskip/internal/skip"
)

// Explanation is the decision for one module together with the import chain
// that leads from it to the name that forced the run.
type Explanation struct {
	Module         string      `json:"module" yaml:"module"`
	Path           string      `json:"path,omitempty" yaml:"path,omitempty"`
	Base           string      `json:"base" yaml:"base"`
	Enabled        bool        `json:"enabled" yaml:"enabled"`
	DisabledReason string      `json:"disabledReason,omitempty" yaml:"disabledReason,omitempty"`
	Run            bool        `json:"run" yaml:"run"`
	Reason         skip.Reason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Trigger        string      `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	TriggerPath    string      `json:"triggerPath,omitempty" yaml:"triggerPath,omitempty"`
	Imports        []string    `json:"imports,omitempty" yaml:"imports,omitempty"`
	Chain          []string    `json:"chain,omitempty" yaml:"chain,omitempty"`
	Stats          *skip.Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Explain evaluates a single module, given as a dotted name or a path to a
// Python file, in a fresh session.
func (r *Runner) Explain(ctx context.Context, target string) (*Explanation, error) {
	tests, err := r.discover(ctx, nil)
	if err != nil {
		return nil, err
	}

	subject, err := r.subject(target, tests)
	if err != nil {
		return nil, err
	}
	if subject.root != "" {
		tests = append([]testModule{subject}, tests...)
	}

	exp := &Explanation{
		Module:  subject.module,
		Base:    r.cfg.BaseRef,
		Enabled: r.cfg.Enabled,
	}
	if subject.file != "" {
		exp.Path = paths.DisplayPath(subject.file, r.repoRoot)
	}

	sess, reason, err := r.open(ctx, tests)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		exp.Enabled = false
		exp.DisabledReason = reason
		exp.Run = true
		return exp, nil
	}

	if subject.file == "" {
		if path, ok := sess.resolver.Resolve(subject.module); ok {
			exp.Path = paths.DisplayPath(path, r.repoRoot)
		}
	}
	d, err := r.evaluate(sess, subject)
	if err != nil {
		return nil, err
	}

	exp.Run = d.Run
	exp.Reason = d.Reason
	exp.Trigger = d.Trigger
	exp.Imports, _ = sess.engine.Imports(subject.module)
	if d.Run && d.Trigger != "" {
		exp.Chain = sess.engine.Graph().ImportChain(subject.module, d.Trigger)
		if path, ok := sess.resolver.Resolve(d.Trigger); ok {
			exp.TriggerPath = paths.DisplayPath(path, r.repoRoot)
		}
	}
	stats := sess.engine.Stats()
	exp.Stats = &stats
	return exp, nil
}

// subject identifies target. Files get their module name and test root;
// dotted names are matched against the discovered tests first and otherwise
// left for the resolver.
func (r *Runner) subject(target string, tests []testModule) (testModule, error) {
	if strings.HasSuffix(target, ".py") || strings.ContainsRune(target, os.PathSeparator) {
		file := target
		if !filepath.IsAbs(file) {
			file = filepath.Join(r.repoRoot, file)
		}
		real, err := paths.RealPath(file)
		if err != nil {
			return testModule{}, fmt.Errorf("explain %s: %w", target, err)
		}
		module, root, err := pymod.ModuleName(real)
		if err != nil {
			return testModule{}, err
		}
		return testModule{file: real, module: module, root: root}, nil
	}

	for _, t := range tests {
		if t.module == target {
			return t, nil
		}
	}
	return testModule{module: target}, nil
}
