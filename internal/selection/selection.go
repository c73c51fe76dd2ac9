// Package selection holds the per-session state of user choices: the
// current value of each input node, the dirty set awaiting the next
// propagation pass, and the Domain type describing the legal values of a
// node in its current ancestor context.
package selection

import (
	"errors"
	"fmt"
	"sort"
)

// Unset is the zero value of a node. Get reports it with ok == false.
const Unset = ""

// ErrInvalidSelection is returned when a value is outside a node's current domain.
var ErrInvalidSelection = errors.New("invalid selection")

// InvalidSelectionError records a rejected set with the node, the offered
// value and why it was refused.
type InvalidSelectionError struct {
	Node   string
	Value  string
	Reason string
}

// Error returns a human-readable description of the rejected selection.
func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("%s: %s %q: %s", ErrInvalidSelection, e.Node, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidSelection for use with errors.Is.
func (e *InvalidSelectionError) Unwrap() error {
	return ErrInvalidSelection
}

// Domain is the legal value set of an input node in its current context.
type Domain struct {
	// Options lists the legal values in display order.
	Options []string `json:"options"`
	// NotApplicable marks a node that has no meaning in the current
	// context (a category for a sport with a single table). Such a node
	// counts as resolved while unset.
	NotApplicable bool `json:"not_applicable,omitempty"`
}

// Contains reports whether v is one of the domain's options.
func (d Domain) Contains(v string) bool {
	if v == Unset {
		return false
	}
	for _, o := range d.Options {
		if o == v {
			return true
		}
	}
	return false
}

// State maps node names to their current values. It is owned by a single
// session and is not safe for concurrent use.
type State struct {
	values map[string]string
	dirty  map[string]bool
}

// New creates an empty State.
func New() *State {
	return &State{
		values: make(map[string]string),
		dirty:  make(map[string]bool),
	}
}

// Get returns the stored value of node. ok is false when the node is unset.
// The stored value may be stale; propagation decides whether downstream
// consumers see it.
func (s *State) Get(node string) (value string, ok bool) {
	v, ok := s.values[node]
	return v, ok && v != Unset
}

// Assign stores value for node and marks it dirty. Assigning Unset clears it.
// Callers validate value against the node's domain first.
func (s *State) Assign(node, value string) {
	if value == Unset {
		delete(s.values, node)
	} else {
		s.values[node] = value
	}
	s.dirty[node] = true
}

// Reset clears node without marking it dirty. It reports whether a value
// was actually removed.
func (s *State) Reset(node string) bool {
	if _, ok := s.values[node]; !ok {
		return false
	}
	delete(s.values, node)
	return true
}

// MarkDirty flags nodes for recomputation in the next pass.
func (s *State) MarkDirty(nodes ...string) {
	for _, n := range nodes {
		s.dirty[n] = true
	}
}

// TakeDirty returns the dirty nodes sorted by name and clears the set.
func (s *State) TakeDirty() []string {
	out := make([]string, 0, len(s.dirty))
	for n := range s.dirty {
		out = append(out, n)
	}
	sort.Strings(out)
	s.dirty = make(map[string]bool)
	return out
}

// Snapshot returns a copy of all set values.
func (s *State) Snapshot() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
