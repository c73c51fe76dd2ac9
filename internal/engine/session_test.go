package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/papapumpkin/scoreline/internal/selection"
	"github.com/papapumpkin/scoreline/internal/telemetry"
)

// fixture is a small sports graph over in-memory rosters:
// sport → team, category → player1, player2 → compare; team+category → roster.
type fixture struct {
	graph *Graph
	// seen records the inputs the compare builder received, last first.
	seen []Inputs
}

var (
	teams = map[string][]string{
		"cricket": {"India", "Australia"},
		"nba":     {"Lakers"},
	}
	categories = map[string][]string{
		"cricket": {"batting", "bowling"},
	}
	rosters = map[string][]string{
		"cricket/India/batting":     {"Kohli", "Rohit"},
		"cricket/India/bowling":     {"Bumrah"},
		"cricket/Australia/batting": {"Smith", "Warner"},
		"cricket/Australia/bowling": {"Cummins", "Smith"},
		"nba/Lakers/":               {"James", "Davis"},
	}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{graph: NewGraph()}
	g := f.graph

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("declare: %v", err)
		}
	}
	must(g.DeclareInput("sport", nil, constDomain("cricket", "nba")))
	must(g.DeclareInput("team", []string{"sport"}, func(in Inputs) (selection.Domain, error) {
		return selection.Domain{Options: teams[in.Get("sport")]}, nil
	}))
	must(g.DeclareInput("category", []string{"sport"}, func(in Inputs) (selection.Domain, error) {
		sport, ok := in.Value("sport")
		if !ok {
			return selection.Domain{}, nil
		}
		cats := categories[sport]
		if len(cats) == 0 {
			return selection.Domain{NotApplicable: true}, nil
		}
		return selection.Domain{Options: cats}, nil
	}))
	players := func(in Inputs) (selection.Domain, error) {
		key := in.Get("sport") + "/" + in.Get("team") + "/" + in.Get("category")
		return selection.Domain{Options: rosters[key]}, nil
	}
	must(g.DeclareDynamic("player1", []string{"team", "category"}, players))
	must(g.DeclareDynamic("player2", []string{"team", "category"}, players))
	must(g.DeclareOutput("roster", []string{"team", "category"}, func(in Inputs) (Artifact, error) {
		team, ok := in.Value("team")
		if !ok {
			return Placeholder("select a team"), nil
		}
		return Ready(rosters[in.Get("sport")+"/"+team+"/"+in.Get("category")]), nil
	}))
	must(g.DeclareOutput("compare", []string{"player1", "player2"}, func(in Inputs) (Artifact, error) {
		f.seen = append([]Inputs{in}, f.seen...)
		a, okA := in.Value("player1")
		b, okB := in.Value("player2")
		if !okA || !okB {
			return Placeholder("select two players"), nil
		}
		return Ready(a + " vs " + b), nil
	}))
	must(g.Seal())
	return f
}

func mustSet(t *testing.T, s *Session, node, value string) *Result {
	t.Helper()
	res, err := s.Set(node, value)
	if err != nil {
		t.Fatalf("Set(%s, %s): %v", node, value, err)
	}
	return res
}

func newCricketSession(t *testing.T, f *fixture) *Session {
	t.Helper()
	s, err := NewSession(f.graph, WithID("test"), WithSelection("sport", "cricket"))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func selectComparison(t *testing.T, s *Session) {
	t.Helper()
	mustSet(t, s, "team", "India")
	mustSet(t, s, "category", "batting")
	mustSet(t, s, "player1", "Kohli")
	mustSet(t, s, "player2", "Rohit")
}

func TestNewSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	s, err := NewSession(f.graph)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.ID == "" {
		t.Error("expected a generated session ID")
	}
	if s.Last().Pass != 1 || s.Last().Trigger != "" {
		t.Errorf("expected initial pass, got %+v", s.Last())
	}
	if s.Instantiated("player1") {
		t.Error("player1 should not exist before team and category")
	}
	if d, _ := s.Options("team"); len(d.Options) != 0 {
		t.Errorf("expected no teams before a sport, got %v", d.Options)
	}
	for _, out := range []string{"roster", "compare"} {
		if st := s.OutputState(out); st != StateEmpty {
			t.Errorf("%s: expected empty, got %s", out, st)
		}
	}
	if got := len(s.Artifacts()); got != 2 {
		t.Errorf("expected 2 artifacts, got %d", got)
	}

	s = newCricketSession(t, f)
	if s.ID != "test" {
		t.Errorf("expected ID test, got %q", s.ID)
	}
	if v, _ := s.Get("sport"); v != "cricket" {
		t.Errorf("expected default sport cricket, got %q", v)
	}
	d, _ := s.Options("team")
	if diff := cmp.Diff([]string{"India", "Australia"}, d.Options); diff != "" {
		t.Errorf("team options mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewSession(f.graph, WithSelection("sport", "curling")); !errors.Is(err, selection.ErrInvalidSelection) {
		t.Errorf("expected invalid initial selection, got %v", err)
	}
}

func TestSession_Comparison(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newCricketSession(t, f)
	selectComparison(t, s)

	a, ok := s.Artifact("compare")
	if !ok {
		t.Fatal("expected compare artifact")
	}
	if a.Value != "Kohli vs Rohit" || a.State != StateReady {
		t.Errorf("unexpected artifact %+v", a)
	}
	if a.Node != "compare" {
		t.Errorf("expected node name on artifact, got %q", a.Node)
	}
}

func TestSession_Cascade(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newCricketSession(t, f)
	selectComparison(t, s)

	res := mustSet(t, s, "team", "Australia")

	for _, n := range []string{"player1", "player2"} {
		if !wasReset(res, n) {
			t.Errorf("expected %s to be reset", n)
		}
		if _, ok := s.Get(n); ok {
			t.Errorf("expected %s to be unset", n)
		}
	}
	d, _ := s.Options("player1")
	if diff := cmp.Diff([]string{"Smith", "Warner"}, d.Options); diff != "" {
		t.Errorf("player1 options mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(d, res.Domains["player1"]); diff != "" {
		t.Errorf("result domain mismatch (-want +got):\n%s", diff)
	}
	a, _ := res.Artifact("compare")
	if a.Placeholder != "select two players" {
		t.Errorf("expected comparison placeholder, got %+v", a)
	}
	if v, _ := s.Get("category"); v != "batting" {
		t.Errorf("category should be retained, got %q", v)
	}
}

func TestSession_RetainsStillValidValue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newCricketSession(t, f)
	mustSet(t, s, "team", "Australia")
	mustSet(t, s, "category", "batting")
	mustSet(t, s, "player1", "Smith")
	mustSet(t, s, "player2", "Warner")

	res := mustSet(t, s, "category", "bowling")
	if wasReset(res, "player1") {
		t.Error("Smith also bowls; player1 should be kept")
	}
	if !wasReset(res, "player2") {
		t.Error("Warner does not bowl; player2 should be reset")
	}
	if v, _ := s.Get("player1"); v != "Smith" {
		t.Errorf("expected player1 Smith, got %q", v)
	}
}

func TestSession_TriggerSourceFiltering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newCricketSession(t, f)
	selectComparison(t, s)

	mustSet(t, s, "team", "Australia")
	in := f.seen[0]
	if _, ok := in.Value("player1"); ok {
		t.Error("builder must not see the previous team's player")
	}
	if _, ok := in.Value("player2"); ok {
		t.Error("builder must not see a reset player2")
	}
	if got := in.Get("category"); got != "batting" {
		t.Errorf("expected retained category batting, got %q", got)
	}
	if got := in.Get("team"); got != "Australia" {
		t.Errorf("expected team Australia, got %q", got)
	}

	mustSet(t, s, "player1", "Smith")
	in = f.seen[0]
	if v, _ := in.Value("player1"); v != "Smith" {
		t.Errorf("expected player1 Smith, got %q", v)
	}
}

func TestSession_InvalidSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  func(t *testing.T, s *Session)
		node   string
		value  string
		reason string
	}{
		{
			name:   "dynamic node before its ancestors",
			node:   "player1",
			value:  "Kohli",
			reason: "not available",
		},
		{
			name: "player from another category",
			setup: func(t *testing.T, s *Session) {
				mustSet(t, s, "team", "India")
				mustSet(t, s, "category", "bowling")
			},
			node:   "player1",
			value:  "Kohli",
			reason: "not in the current options",
		},
		{
			name: "category for a sport without categories",
			setup: func(t *testing.T, s *Session) {
				mustSet(t, s, "sport", "nba")
			},
			node:   "category",
			value:  "batting",
			reason: "not applicable",
		},
		{
			name:   "empty value",
			node:   "team",
			value:  "",
			reason: "use clear",
		},
		{
			name:   "unknown team",
			node:   "team",
			value:  "Nepal",
			reason: "not in the current options",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newCricketSession(t, newFixture(t))
			if tt.setup != nil {
				tt.setup(t, s)
			}
			before := s.Selections()
			pass := s.Last().Pass

			_, err := s.Set(tt.node, tt.value)
			var ise *selection.InvalidSelectionError
			if !errors.As(err, &ise) {
				t.Fatalf("expected *InvalidSelectionError, got %v", err)
			}
			if !errors.Is(err, selection.ErrInvalidSelection) {
				t.Error("expected error to wrap ErrInvalidSelection")
			}
			if !strings.Contains(ise.Reason, tt.reason) {
				t.Errorf("expected reason containing %q, got %q", tt.reason, ise.Reason)
			}
			if diff := cmp.Diff(before, s.Selections()); diff != "" {
				t.Errorf("state changed on rejection (-before +after):\n%s", diff)
			}
			if s.Last().Pass != pass {
				t.Error("a rejected set must not run a pass")
			}
		})
	}
}

func TestSession_NodeErrors(t *testing.T) {
	t.Parallel()
	s := newCricketSession(t, newFixture(t))

	if _, err := s.Set("nope", "x"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
	if _, err := s.Set("roster", "x"); !errors.Is(err, ErrNotInput) {
		t.Errorf("expected ErrNotInput, got %v", err)
	}
	if _, err := s.Clear("compare"); !errors.Is(err, ErrNotInput) {
		t.Errorf("expected ErrNotInput from Clear, got %v", err)
	}
	if _, err := s.Options("roster"); !errors.Is(err, ErrNotInput) {
		t.Errorf("expected ErrNotInput from Options, got %v", err)
	}
}

func TestSession_ClearUninstantiates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newCricketSession(t, f)
	selectComparison(t, s)

	res, err := s.Clear("team")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Instantiated("player1") || s.Instantiated("player2") {
		t.Error("players should not exist without a team")
	}
	if !wasReset(res, "player1") || !wasReset(res, "player2") {
		t.Errorf("expected both players reset, got %+v", res.Resets)
	}
	if d, _ := s.Options("player1"); len(d.Options) != 0 {
		t.Errorf("expected empty options, got %v", d.Options)
	}
	a, _ := s.Artifact("roster")
	if a.Placeholder != "select a team" || a.State != StatePartial {
		t.Errorf("unexpected roster artifact %+v", a)
	}
}

func TestSession_NotApplicableCountsAsResolved(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newCricketSession(t, f)
	mustSet(t, s, "category", "batting")

	res := mustSet(t, s, "sport", "nba")
	if !wasReset(res, "category") {
		t.Error("category should be reset when the sport has none")
	}
	d, _ := s.Options("category")
	if !d.NotApplicable {
		t.Error("expected category to be not applicable")
	}
	mustSet(t, s, "team", "Lakers")
	if !s.Instantiated("player1") {
		t.Fatal("players should exist once the team is chosen")
	}
	mustSet(t, s, "player1", "James")
	mustSet(t, s, "player2", "Davis")
	if st := s.OutputState("roster"); st != StateReady {
		t.Errorf("expected roster ready, got %s", st)
	}
	in := f.seen[0]
	if in.Applicable("category") {
		t.Error("category should not be applicable for nba")
	}
	if a, _ := s.Artifact("compare"); a.Value != "James vs Davis" {
		t.Errorf("unexpected comparison %+v", a)
	}
}

func TestSession_Idempotence(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newCricketSession(t, f)
	selectComparison(t, s)

	first := mustSet(t, s, "team", "India")
	second := mustSet(t, s, "team", "India")

	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(Result{}, "Pass")); diff != "" {
		t.Errorf("repeated set produced a different result (-first +second):\n%s", diff)
	}
	if len(second.Resets) != 0 {
		t.Errorf("expected no resets, got %+v", second.Resets)
	}
	if second.Pass != first.Pass+1 {
		t.Errorf("expected exactly one pass per set, got %d then %d", first.Pass, second.Pass)
	}
}

func TestSession_Transitions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newCricketSession(t, f)

	res := mustSet(t, s, "team", "India")
	if s.OutputState("roster") != StatePartial {
		t.Errorf("expected roster partial, got %s", s.OutputState("roster"))
	}
	if len(res.Transitions) != 0 {
		t.Errorf("expected no transitions, got %+v", res.Transitions)
	}

	res = mustSet(t, s, "category", "batting")
	if diff := cmp.Diff([]Transition{{Node: "roster", From: StatePartial, To: StateReady}}, res.Transitions); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}

	mustSet(t, s, "player1", "Kohli")
	res = mustSet(t, s, "player2", "Rohit")
	if diff := cmp.Diff([]Transition{{Node: "compare", From: StatePartial, To: StateReady}}, res.Transitions); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}

	res = mustSet(t, s, "player2", "Kohli")
	wantStale := []Transition{
		{Node: "compare", From: StateReady, To: StateStale},
		{Node: "compare", From: StateStale, To: StateReady},
	}
	if diff := cmp.Diff(wantStale, res.Transitions); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}

	res = mustSet(t, s, "team", "Australia")
	wantPartial := []Transition{
		{Node: "roster", From: StateReady, To: StateStale},
		{Node: "roster", From: StateStale, To: StateReady},
		{Node: "compare", From: StateReady, To: StateStale},
		{Node: "compare", From: StateStale, To: StatePartial},
	}
	if diff := cmp.Diff(wantPartial, res.Transitions); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_Isolation(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	decls := []error{
		g.DeclareInput("team", nil, constDomain("India", "Australia")),
		g.DeclareDynamic("player", []string{"team"}, func(in Inputs) (selection.Domain, error) {
			if in.Get("team") == "Australia" {
				return selection.Domain{}, errors.New("roster unavailable")
			}
			return selection.Domain{Options: []string{"Kohli"}}, nil
		}),
		g.DeclareOutput("broken", []string{"team"}, func(Inputs) (Artifact, error) {
			return Artifact{}, fmt.Errorf("metric %q: missing data", "strike rate")
		}),
		g.DeclareOutput("panics", []string{"team"}, func(Inputs) (Artifact, error) {
			panic("boom")
		}),
		g.DeclareOutput("healthy", []string{"team"}, func(in Inputs) (Artifact, error) {
			return Ready("team " + in.Get("team")), nil
		}),
	}
	for _, err := range decls {
		if err != nil {
			t.Fatalf("declare: %v", err)
		}
	}
	if err := g.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	s, err := NewSession(g)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	res := mustSet(t, s, "team", "India")

	healthy, _ := res.Artifact("healthy")
	if healthy.Value != "team India" {
		t.Errorf("healthy output not rebuilt: %+v", healthy)
	}
	broken, _ := res.Artifact("broken")
	if broken.Placeholder != PlaceholderFailed || !strings.Contains(broken.Err, "missing data") {
		t.Errorf("unexpected broken artifact %+v", broken)
	}
	panics, _ := res.Artifact("panics")
	if !strings.Contains(panics.Err, "boom") || !panics.IsPlaceholder() {
		t.Errorf("unexpected panics artifact %+v", panics)
	}
	if got := len(res.Failures); got != 2 {
		t.Errorf("expected 2 failures, got %+v", res.Failures)
	}

	mustSet(t, s, "player", "Kohli")
	res = mustSet(t, s, "team", "Australia")
	if !wasReset(res, "player") {
		t.Error("a failing domain must still reset the stale value")
	}
	if d := res.Domains["player"]; len(d.Options) != 0 {
		t.Errorf("expected empty domain on failure, got %v", d.Options)
	}
	healthy, _ = res.Artifact("healthy")
	if healthy.Value != "team Australia" {
		t.Errorf("healthy output not rebuilt: %+v", healthy)
	}
}

func TestSession_DomainConsistency(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := newCricketSession(t, f)
	rng := rand.New(rand.NewSource(7))
	inputs := f.graph.Inputs()

	for step := 0; step < 500; step++ {
		node := inputs[rng.Intn(len(inputs))]
		d, err := s.Options(node)
		if err != nil {
			t.Fatalf("Options(%s): %v", node, err)
		}
		switch r := rng.Intn(10); {
		case r == 0:
			if _, err := s.Clear(node); err != nil {
				t.Fatalf("Clear(%s): %v", node, err)
			}
		case r == 1 || len(d.Options) == 0:
			_, err := s.Set(node, "Nobody")
			if !errors.Is(err, selection.ErrInvalidSelection) {
				t.Fatalf("step %d: expected rejection for %s, got %v", step, node, err)
			}
		default:
			mustSet(t, s, node, d.Options[rng.Intn(len(d.Options))])
		}

		for _, n := range inputs {
			v, ok := s.Get(n)
			if !ok {
				continue
			}
			d, _ := s.Options(n)
			if !d.Contains(v) {
				t.Fatalf("step %d: %s holds %q outside its options %v", step, n, v, d.Options)
			}
		}
		if a, _ := s.Artifact("compare"); a.State == StateReady {
			p1, _ := s.Get("player1")
			p2, _ := s.Get("player2")
			if a.Value != p1+" vs "+p2 {
				t.Fatalf("step %d: comparison %v does not match selection %s/%s", step, a.Value, p1, p2)
			}
		}
	}
}

type bufferCloser struct{ bytes.Buffer }

func (*bufferCloser) Close() error { return nil }

func TestSession_Telemetry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	buf := &bufferCloser{}
	em := telemetry.NewWriterEmitter(buf)

	s, err := NewSession(f.graph, WithID("s1"), WithEmitter(em), WithSelection("sport", "cricket"))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	selectComparison(t, s)
	mustSet(t, s, "team", "Australia")
	_, _ = s.Set("player1", "Kohli")
	s.Close()

	counts := make(map[string]int)
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var evt telemetry.Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("bad event line %q: %v", line, err)
		}
		if evt.SessionID != "s1" {
			t.Errorf("expected session s1, got %q", evt.SessionID)
		}
		counts[evt.Kind]++
	}

	want := map[string]int{
		telemetry.KindSessionStart:      1,
		telemetry.KindSelectionSet:      6,
		telemetry.KindSelectionRejected: 1,
		telemetry.KindNodeReset:         2,
		telemetry.KindPassDone:          7,
		telemetry.KindSessionEnd:        1,
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("event counts mismatch (-want +got):\n%s", diff)
	}
}

func wasReset(res *Result, name string) bool {
	for _, rs := range res.Resets {
		if rs.Node == name {
			return true
		}
	}
	return false
}
