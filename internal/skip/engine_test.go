package skip

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// fakeResolver maps names to paths and counts lookups
type fakeResolver struct {
	paths map[string]string
	calls map[string]int
}

func (r *fakeResolver) Resolve(name string) (string, bool) {
	r.calls[name]++
	p, ok := r.paths[name]
	return p, ok
}

type fakeFile struct {
	names     []string
	confirmed []string
	err       error
}

// fakeExtractor serves canned imports per path and counts extractions
type fakeExtractor struct {
	files map[string]fakeFile
	calls map[string]int
}

func (x *fakeExtractor) Extract(path string) ([]string, []string, error) {
	x.calls[path]++
	f := x.files[path]
	return f.names, f.confirmed, f.err
}

// project describes a module graph: name -> imported names.
// Each module name N lives in /repo/N.py and all its imports are confirmed.
type project map[string][]string

func (p project) collaborators() (*fakeResolver, *fakeExtractor) {
	r := &fakeResolver{paths: map[string]string{}, calls: map[string]int{}}
	x := &fakeExtractor{files: map[string]fakeFile{}, calls: map[string]int{}}
	for name, deps := range p {
		path := pathOf(name)
		r.paths[name] = path
		x.files[path] = fakeFile{names: deps, confirmed: deps}
	}
	return r, x
}

func pathOf(name string) string {
	return "/repo/" + strings.ReplaceAll(name, ".", "/") + ".py"
}

func newTestEngine(p project, safe bool, changed ...string) (*Engine, *fakeResolver, *fakeExtractor) {
	r, x := p.collaborators()
	files := make([]string, 0, len(changed))
	for _, c := range changed {
		files = append(files, pathOf(c))
	}
	e := NewEngine(Config{ChangedFiles: files, SafeMode: safe}, r, x, nil)
	return e, r, x
}

// diamond: A imports B and D, both import C, D also imports E
func diamond() project {
	return project{
		"A": {"B", "D"},
		"B": {"C"},
		"C": {},
		"D": {"C", "E"},
		"E": {},
	}
}

func mustEvaluate(t *testing.T, e *Engine, root string) Decision {
	t.Helper()
	d, err := e.Evaluate(root)
	if err != nil {
		t.Fatalf("Evaluate(%q) error = %v", root, err)
	}
	return d
}

func TestEngine_DiamondPropagation(t *testing.T) {
	tests := []struct {
		name        string
		changed     string
		wantMustRun []string
	}{
		{"shared leaf changed", "C", []string{"A", "B", "C", "D"}},
		{"single-importer leaf changed", "E", []string{"A", "D", "E"}},
		{"root changed", "A", []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newTestEngine(diamond(), false, tt.changed)

			d := mustEvaluate(t, e, "A")
			if !d.Run {
				t.Fatal("A should run")
			}
			if d.Trigger != tt.changed || d.Reason != ReasonChanged {
				t.Errorf("decision = %+v, want trigger %s reason changed", d, tt.changed)
			}
			if got := e.MustRun(); !reflect.DeepEqual(got, tt.wantMustRun) {
				t.Errorf("MustRun() = %v, want %v", got, tt.wantMustRun)
			}
		})
	}
}

func TestEngine_NoChanges(t *testing.T) {
	e, _, _ := newTestEngine(diamond(), false)

	for i := 0; i < 3; i++ {
		d := mustEvaluate(t, e, "A")
		if d.Run {
			t.Fatalf("call %d: A should be skippable with no changes, got %+v", i, d)
		}
	}
	if got := e.MustRun(); len(got) != 0 {
		t.Errorf("MustRun() = %v, want empty", got)
	}
}

func TestEngine_SelfReachability(t *testing.T) {
	e, _, _ := newTestEngine(project{"tests.test_x": {}}, false, "tests.test_x")

	d := mustEvaluate(t, e, "tests.test_x")
	if !d.Run || d.Trigger != "tests.test_x" {
		t.Fatalf("changed root should run itself, got %+v", d)
	}
}

func TestEngine_CycleTerminates(t *testing.T) {
	p := project{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
	}

	e, _, x := newTestEngine(p, false)
	if d := mustEvaluate(t, e, "A"); d.Run {
		t.Errorf("cycle without changes should skip, got %+v", d)
	}
	for path, n := range x.calls {
		if n != 1 {
			t.Errorf("%s extracted %d times, want 1", path, n)
		}
	}

	e, _, _ = newTestEngine(p, false, "C")
	if d := mustEvaluate(t, e, "A"); !d.Run {
		t.Fatal("cycle reaching changed C should run")
	}
	if got := e.MustRun(); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("MustRun() = %v, want [A B C]", got)
	}
}

func TestEngine_Monotonic(t *testing.T) {
	e, _, _ := newTestEngine(diamond(), false, "E")

	roots := []string{"B", "A", "D", "C", "E", "A", "B"}
	prev := map[string]bool{}
	for _, root := range roots {
		mustEvaluate(t, e, root)
		cur := map[string]bool{}
		for _, n := range e.MustRun() {
			cur[n] = true
		}
		for n := range prev {
			if !cur[n] {
				t.Fatalf("after %s: %s dropped out of the must-run set", root, n)
			}
		}
		prev = cur
	}
	if !prev["A"] || !prev["D"] || !prev["E"] || prev["B"] || prev["C"] {
		t.Errorf("final must-run set = %v", e.MustRun())
	}
}

func TestEngine_Idempotent(t *testing.T) {
	e, _, _ := newTestEngine(diamond(), false, "C")

	first := mustEvaluate(t, e, "B")
	second := mustEvaluate(t, e, "B")
	if first.Run != second.Run {
		t.Fatalf("answers differ: %+v then %+v", first, second)
	}
	if second.Reason != ReasonCached {
		t.Errorf("second answer reason = %q, want cached", second.Reason)
	}
}

func TestEngine_CacheShortCircuitAcrossCalls(t *testing.T) {
	p := diamond()
	p["tests.test_one"] = []string{"B"}
	p["tests.test_two"] = []string{"B", "E"}

	e, r, x := newTestEngine(p, false, "C")

	d := mustEvaluate(t, e, "tests.test_one")
	if !d.Run || d.Reason != ReasonChanged || d.Trigger != "C" {
		t.Fatalf("test_one = %+v, want run via changed C", d)
	}

	resolvedBefore := r.calls["E"]
	d = mustEvaluate(t, e, "tests.test_two")
	if !d.Run || d.Reason != ReasonCached || d.Trigger != "B" {
		t.Fatalf("test_two = %+v, want cached hit on B", d)
	}
	if r.calls["E"] != resolvedBefore {
		t.Error("E should not be resolved once B is known to force a run")
	}
	if x.calls[pathOf("B")] != 1 {
		t.Errorf("B extracted %d times, want 1", x.calls[pathOf("B")])
	}

	want := []string{"B", "C", "tests.test_one", "tests.test_two"}
	if got := e.MustRun(); !reflect.DeepEqual(got, want) {
		t.Errorf("MustRun() = %v, want %v", got, want)
	}
}

func TestEngine_ExtractsEachFileOnce(t *testing.T) {
	p := diamond()
	p["tests.test_one"] = []string{"A"}
	p["tests.test_two"] = []string{"D", "B"}
	p["tests.test_three"] = []string{"C"}

	e, _, x := newTestEngine(p, false)
	for _, root := range []string{"tests.test_one", "tests.test_two", "tests.test_three", "tests.test_one"} {
		if d := mustEvaluate(t, e, root); d.Run {
			t.Fatalf("%s should skip without changes", root)
		}
	}

	for path, n := range x.calls {
		if n != 1 {
			t.Errorf("%s extracted %d times, want 1", path, n)
		}
	}
	if s := e.Stats(); s.MemoHits == 0 {
		t.Error("later walks should reuse memoized imports")
	}
}

func TestEngine_UnresolvedNames(t *testing.T) {
	tests := []struct {
		name       string
		safe       bool
		confirmed  []string
		wantRun    bool
		wantReason Reason
	}{
		{"unconfirmed candidate skipped", false, nil, false, ""},
		{"confirmed missing forces run", false, []string{"pkg.missing"}, true, ReasonConfirmedMissing},
		{"safe mode forces run", true, nil, true, ReasonUnresolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeResolver{
				paths: map[string]string{"tests.test_a": "/repo/tests/test_a.py"},
				calls: map[string]int{},
			}
			x := &fakeExtractor{
				files: map[string]fakeFile{
					"/repo/tests/test_a.py": {names: []string{"pkg.missing"}, confirmed: tt.confirmed},
				},
				calls: map[string]int{},
			}
			e := NewEngine(Config{SafeMode: tt.safe}, r, x, nil)

			d := mustEvaluate(t, e, "tests.test_a")
			if d.Run != tt.wantRun || d.Reason != tt.wantReason {
				t.Fatalf("decision = %+v, want run=%v reason=%q", d, tt.wantRun, tt.wantReason)
			}
			if tt.wantRun && d.Trigger != "pkg.missing" {
				t.Errorf("Trigger = %q, want pkg.missing", d.Trigger)
			}
		})
	}
}

func TestEngine_UnresolvedRoot(t *testing.T) {
	tests := []struct {
		name       string
		safe       bool
		prior      string // evaluated first; its file confirms "lib.gone"
		wantRun    bool
		wantReason Reason
	}{
		{"unconfirmed root skipped", false, "", false, ""},
		{"safe mode forces run", true, "", true, ReasonUnresolved},
		{"root confirmed by earlier call", false, "tests.test_a", true, ReasonConfirmedMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeResolver{
				paths: map[string]string{"tests.test_a": "/repo/tests/test_a.py"},
				calls: map[string]int{},
			}
			x := &fakeExtractor{
				files: map[string]fakeFile{
					"/repo/tests/test_a.py": {confirmed: []string{"lib.gone"}},
				},
				calls: map[string]int{},
			}
			e := NewEngine(Config{SafeMode: tt.safe}, r, x, nil)
			if tt.prior != "" {
				if d := mustEvaluate(t, e, tt.prior); d.Run {
					t.Fatalf("%s = %+v, want skip", tt.prior, d)
				}
			}

			d := mustEvaluate(t, e, "lib.gone")
			if d.Run != tt.wantRun || d.Reason != tt.wantReason {
				t.Fatalf("decision = %+v, want run=%v reason=%q", d, tt.wantRun, tt.wantReason)
			}
			if tt.wantRun && d.Trigger != "lib.gone" {
				t.Errorf("Trigger = %q, want lib.gone", d.Trigger)
			}
		})
	}
}

func TestEngine_CandidateConfirmedLaterInSameWalk(t *testing.T) {
	// "from a import b" leaves a.b a candidate; c's "import a.b" confirms it.
	r := &fakeResolver{
		paths: map[string]string{
			"tests.test_a": "/repo/tests/test_a.py",
			"a":            "/repo/a/__init__.py",
			"c":            "/repo/c.py",
		},
		calls: map[string]int{},
	}
	x := &fakeExtractor{
		files: map[string]fakeFile{
			"/repo/tests/test_a.py": {names: []string{"a", "a.b", "c"}, confirmed: []string{"a", "c"}},
			"/repo/c.py":            {names: []string{"a", "a.b"}, confirmed: []string{"a", "a.b"}},
		},
		calls: map[string]int{},
	}
	e := NewEngine(Config{}, r, x, nil)

	d := mustEvaluate(t, e, "tests.test_a")
	if !d.Run || d.Reason != ReasonConfirmedMissing || d.Trigger != "a.b" {
		t.Fatalf("decision = %+v, want confirmed-missing on a.b", d)
	}
	if r.calls["a.b"] != 2 {
		t.Errorf("a.b resolved %d times, want 2", r.calls["a.b"])
	}
}

func TestEngine_ConfirmationFromLaterFile(t *testing.T) {
	// test_a only sees "lib.gone" as a candidate; test_b proves it is a module.
	r := &fakeResolver{
		paths: map[string]string{
			"tests.test_a": "/repo/tests/test_a.py",
			"tests.test_b": "/repo/tests/test_b.py",
		},
		calls: map[string]int{},
	}
	x := &fakeExtractor{
		files: map[string]fakeFile{
			"/repo/tests/test_a.py": {names: []string{"lib.gone"}},
			"/repo/tests/test_b.py": {names: []string{"lib.gone"}, confirmed: []string{"lib.gone"}},
		},
		calls: map[string]int{},
	}
	e := NewEngine(Config{}, r, x, nil)

	if d := mustEvaluate(t, e, "tests.test_a"); d.Run {
		t.Fatalf("test_a = %+v, want skip", d)
	}
	if d := mustEvaluate(t, e, "tests.test_b"); !d.Run || d.Reason != ReasonConfirmedMissing {
		t.Fatalf("test_b = %+v, want confirmed-missing", d)
	}
	// test_a's recorded edge put it in the must-run cache.
	if d := mustEvaluate(t, e, "tests.test_a"); !d.Run || d.Reason != ReasonCached {
		t.Fatalf("test_a re-evaluated = %+v, want cached", d)
	}
}

func TestEngine_IgnoredNamesNeverResolved(t *testing.T) {
	p := project{
		"tests.test_a": {"os", "os.path", "pytest", "app"},
		"app":          {"json"},
	}
	r, x := p.collaborators()
	ignored := NewNameSet("os", "os.path", "pytest", "json")
	e := NewEngine(Config{SafeMode: true, Ignored: ignored.Has}, r, x, nil)

	if d := mustEvaluate(t, e, "tests.test_a"); d.Run {
		t.Fatalf("decision = %+v, ignored names must not force a run in safe mode", d)
	}
	for name := range ignored {
		if r.calls[name] != 0 {
			t.Errorf("ignored name %s was resolved %d times", name, r.calls[name])
		}
	}
}

func TestEngine_MalformedSource(t *testing.T) {
	p := project{"tests.test_a": {"broken"}}
	r, x := p.collaborators()
	r.paths["broken"] = "/repo/broken.py"
	x.files["/repo/broken.py"] = fakeFile{err: fmt.Errorf("/repo/broken.py:3: %w", ErrMalformedSource)}
	e := NewEngine(Config{}, r, x, nil)

	_, err := e.Evaluate("tests.test_a")
	if err == nil {
		t.Fatal("expected error for malformed source")
	}
	if !errors.Is(err, ErrMalformedSource) {
		t.Errorf("error %v should wrap ErrMalformedSource", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q should name the module", err)
	}

	if _, err := e.ShouldRun("tests.test_a"); err == nil {
		t.Error("ShouldRun should surface the same failure")
	}
}

func TestEngine_StatsAndImports(t *testing.T) {
	e, _, _ := newTestEngine(diamond(), false)
	mustEvaluate(t, e, "A")
	mustEvaluate(t, e, "A")

	s := e.Stats()
	if s.Evaluations != 2 {
		t.Errorf("Evaluations = %d, want 2", s.Evaluations)
	}
	if s.Extractions != 5 {
		t.Errorf("Extractions = %d, want 5", s.Extractions)
	}
	if s.GraphNodes != 5 {
		t.Errorf("GraphNodes = %d, want 5", s.GraphNodes)
	}

	imports, ok := e.Imports("D")
	if !ok || !reflect.DeepEqual(imports, []string{"C", "E"}) {
		t.Errorf("Imports(D) = %v, %v", imports, ok)
	}
	if _, ok := e.Imports("missing"); ok {
		t.Error("Imports(missing) should report not expanded")
	}
}
