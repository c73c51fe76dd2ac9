package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/papapumpkin/scoreline/internal/selection"
	"github.com/papapumpkin/scoreline/internal/telemetry"
)

// PlaceholderFailed is shown in place of an output whose builder failed.
const PlaceholderFailed = "view unavailable"

// Option configures a Session.
type Option func(*Session)

// WithID sets the session ID. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// WithEmitter records session events. A nil emitter disables telemetry.
func WithEmitter(e *telemetry.Emitter) Option {
	return func(s *Session) { s.emitter = e }
}

// WithSelection applies Set(node, value) once the session is built.
// Several selections are applied in the order given.
func WithSelection(node, value string) Option {
	return func(s *Session) {
		s.initial = append(s.initial, [2]string{node, value})
	}
}

// Session holds one user's selections over a sealed Graph. Each Set or
// Clear runs exactly one propagation pass to completion before returning.
type Session struct {
	ID string

	graph     *Graph
	state     *selection.State
	domains   map[string]selection.Domain
	live      map[string]bool
	artifacts map[string]Artifact
	states    map[string]OutputState
	pass      int
	last      *Result
	emitter   *telemetry.Emitter
	initial   [][2]string
}

// NewSession starts a session on g. Every node is computed once with no
// selections, then the WithSelection options are applied in order.
func NewSession(g *Graph, opts ...Option) (*Session, error) {
	if !g.Sealed() {
		return nil, ErrNotSealed
	}
	s := &Session{
		graph:     g,
		state:     selection.New(),
		domains:   make(map[string]selection.Domain),
		live:      make(map[string]bool),
		artifacts: make(map[string]Artifact),
		states:    make(map[string]OutputState),
	}
	for _, o := range opts {
		o(s)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.emit(telemetry.KindSessionStart, "", nil)

	s.state.MarkDirty(g.order...)
	if _, err := s.propagate(""); err != nil {
		return nil, err
	}
	for _, sel := range s.initial {
		if _, err := s.Set(sel[0], sel[1]); err != nil {
			return nil, fmt.Errorf("initial selection: %w", err)
		}
	}
	return s, nil
}

// Set validates value against the current domain of the input name and,
// if it is a member, stores it and propagates. A rejected value returns a
// *selection.InvalidSelectionError and leaves the session untouched.
func (s *Session) Set(name, value string) (*Result, error) {
	n, err := s.input(name)
	if err != nil {
		return nil, err
	}
	if err := s.validate(n, value); err != nil {
		s.emit(telemetry.KindSelectionRejected, name, map[string]string{"value": value, "error": err.Error()})
		return nil, err
	}
	s.state.Assign(name, value)
	s.emit(telemetry.KindSelectionSet, name, map[string]string{"value": value})
	return s.propagate(name)
}

// Clear unsets the input name and propagates.
func (s *Session) Clear(name string) (*Result, error) {
	if _, err := s.input(name); err != nil {
		return nil, err
	}
	s.state.Assign(name, selection.Unset)
	s.emit(telemetry.KindSelectionSet, name, map[string]string{"value": selection.Unset})
	return s.propagate(name)
}

// Get returns the value of an input. After every pass the stored values
// are valid members of their domains.
func (s *Session) Get(name string) (string, bool) {
	return s.state.Get(name)
}

// Selections returns a copy of every set input.
func (s *Session) Selections() map[string]string {
	return s.state.Snapshot()
}

// Options returns the current domain of the input name. An uninstantiated
// dynamic input has an empty domain.
func (s *Session) Options(name string) (selection.Domain, error) {
	if _, err := s.input(name); err != nil {
		return selection.Domain{}, err
	}
	d := s.domains[name]
	d.Options = append([]string(nil), d.Options...)
	return d, nil
}

// Instantiated reports whether the input name currently exists. Static
// inputs always do.
func (s *Session) Instantiated(name string) bool {
	return s.live[name]
}

// Artifact returns the current artifact of the output name.
func (s *Session) Artifact(name string) (Artifact, bool) {
	a, ok := s.artifacts[name]
	return a, ok
}

// Artifacts returns every output's current artifact in declaration order.
func (s *Session) Artifacts() []Artifact {
	outputs := s.graph.Outputs()
	out := make([]Artifact, 0, len(outputs))
	for _, name := range outputs {
		out = append(out, s.artifacts[name])
	}
	return out
}

// OutputState returns the state of the output name.
func (s *Session) OutputState(name string) OutputState {
	return s.states[name]
}

// Last returns the most recent pass result.
func (s *Session) Last() *Result { return s.last }

// Graph returns the graph backing the session.
func (s *Session) Graph() *Graph { return s.graph }

// Close records the end of the session.
func (s *Session) Close() {
	s.emit(telemetry.KindSessionEnd, "", map[string]int{"passes": s.pass})
}

func (s *Session) input(name string) (*node, error) {
	n, err := s.graph.lookup(name)
	if err != nil {
		return nil, err
	}
	if n.kind == KindOutput {
		return nil, fmt.Errorf("%w: %s", ErrNotInput, name)
	}
	return n, nil
}

func (s *Session) validate(n *node, value string) error {
	reject := func(reason string) error {
		return &selection.InvalidSelectionError{Node: n.name, Value: value, Reason: reason}
	}
	d := s.domains[n.name]
	switch {
	case value == selection.Unset:
		return reject("empty value, use clear")
	case !s.live[n.name]:
		return reject("not available until its ancestors are selected")
	case d.NotApplicable:
		return reject("not applicable here")
	case !d.Contains(value):
		return reject("not in the current options")
	}
	return nil
}

// propagate runs one pass over the dirty nodes and everything downstream
// of them. Ancestors are always visited before dependents, so a reset
// made while visiting an input is seen by every node after it.
func (s *Session) propagate(trigger string) (*Result, error) {
	order, err := s.graph.TopoOrder(s.state.TakeDirty())
	if err != nil {
		return nil, err
	}
	s.pass++
	res := &Result{
		Pass:    s.pass,
		Trigger: trigger,
		Order:   order,
		Domains: make(map[string]selection.Domain),
	}
	for _, name := range order {
		n := s.graph.nodes[name]
		if n.kind == KindOutput {
			s.rebuild(n, res)
		} else {
			s.recompute(n, res)
		}
	}
	s.last = res
	s.emit(telemetry.KindPassDone, trigger, map[string]int{
		"pass":     res.Pass,
		"visited":  len(res.Order),
		"resets":   len(res.Resets),
		"failures": len(res.Failures),
	})
	return res, nil
}

func (s *Session) recompute(n *node, res *Result) {
	live := n.kind == KindInput || s.allResolved(n.inputs)
	var dom selection.Domain
	if live {
		d, err := callDomain(n.domain, s.inputsFor(n))
		if err != nil {
			s.fail(n.name, err, res)
		} else {
			dom = d
		}
	}
	s.live[n.name] = live
	s.domains[n.name] = dom
	res.Domains[n.name] = dom

	if prev, ok := s.state.Get(n.name); ok && !dom.Contains(prev) {
		s.state.Reset(n.name)
		res.Resets = append(res.Resets, Reset{Node: n.name, Previous: prev})
		s.emit(telemetry.KindNodeReset, n.name, map[string]string{"previous": prev})
	}
}

func (s *Session) rebuild(n *node, res *Result) {
	prev := s.states[n.name]
	next := s.outputState(n)
	if prev == StateReady {
		res.Transitions = append(res.Transitions, Transition{Node: n.name, From: StateReady, To: StateStale})
		prev = StateStale
	}
	if prev != next {
		res.Transitions = append(res.Transitions, Transition{Node: n.name, From: prev, To: next})
	}

	art, err := callBuild(n.build, s.inputsFor(n))
	if err != nil {
		s.fail(n.name, err, res)
		art = Placeholder(PlaceholderFailed)
		art.Err = err.Error()
	}
	art.Node = n.name
	art.State = next
	s.states[n.name] = next
	s.artifacts[n.name] = art
	res.Artifacts = append(res.Artifacts, art)
}

func (s *Session) fail(name string, err error, res *Result) {
	res.Failures = append(res.Failures, Failure{Node: name, Message: err.Error()})
	s.emit(telemetry.KindNodeFailed, name, map[string]string{"error": err.Error()})
}

// resolved reports whether an input holds a valid value, or has no
// meaning in the current context and so needs none.
func (s *Session) resolved(name string) bool {
	if !s.live[name] {
		return false
	}
	d := s.domains[name]
	if d.NotApplicable {
		return true
	}
	v, ok := s.state.Get(name)
	return ok && d.Contains(v)
}

func (s *Session) allResolved(names []string) bool {
	for _, name := range names {
		if !s.resolved(name) {
			return false
		}
	}
	return true
}

func (s *Session) outputState(n *node) OutputState {
	set, resolved := 0, 0
	for _, a := range n.inputs {
		if s.resolved(a) {
			resolved++
		}
		if _, ok := s.state.Get(a); ok {
			set++
		}
	}
	switch {
	case resolved == len(n.inputs):
		return StateReady
	case set == 0:
		return StateEmpty
	default:
		return StatePartial
	}
}

// inputsFor applies trigger-source filtering: n sees only its declared
// ancestors, and only those whose value is in their current domain.
func (s *Session) inputsFor(n *node) Inputs {
	in := Inputs{
		values:   make(map[string]string, len(n.inputs)),
		inapt:    make(map[string]bool),
		declared: make(map[string]bool, len(n.inputs)),
	}
	for _, a := range n.inputs {
		in.declared[a] = true
		if !s.live[a] {
			continue
		}
		d := s.domains[a]
		if d.NotApplicable {
			in.inapt[a] = true
			continue
		}
		if v, ok := s.state.Get(a); ok && d.Contains(v) {
			in.values[a] = v
		}
	}
	return in
}

func (s *Session) emit(kind, node string, data any) {
	_ = s.emitter.Emit(telemetry.Event{Kind: kind, SessionID: s.ID, Node: node, Data: data})
}

func callDomain(fn DomainFunc, in Inputs) (d selection.Domain, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(in)
}

func callBuild(fn BuildFunc, in Inputs) (a Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(in)
}
