package engine

import (
	"fmt"

	"github.com/papapumpkin/scoreline/internal/selection"
)

// OutputState tracks how complete an output's inputs are.
type OutputState int

const (
	// StateEmpty means none of the output's ancestor inputs is set.
	StateEmpty OutputState = iota
	// StatePartial means some ancestor inputs are set.
	StatePartial
	// StateReady means every applicable ancestor input holds a valid value.
	StateReady
	// StateStale marks a Ready output whose ancestors changed in the
	// running pass. It never outlives the pass.
	StateStale
)

// String returns the lower-case state name.
func (s OutputState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s OutputState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Artifact is the current product of an output node. Exactly one of
// Value and Placeholder is meaningful: a placeholder is a prompt shown in
// place of the view.
type Artifact struct {
	Node        string      `json:"node"`
	State       OutputState `json:"state"`
	Placeholder string      `json:"placeholder,omitempty"`
	Value       any         `json:"value,omitempty"`
	Err         string      `json:"error,omitempty"`
}

// Placeholder returns an artifact that shows msg instead of a view.
func Placeholder(msg string) Artifact {
	return Artifact{Placeholder: msg}
}

// Ready returns an artifact carrying v.
func Ready(v any) Artifact {
	return Artifact{Value: v}
}

// IsPlaceholder reports whether the artifact has no view to show.
func (a Artifact) IsPlaceholder() bool {
	return a.Placeholder != "" || a.Value == nil
}

// Transition records an output moving between states in a pass.
type Transition struct {
	Node string      `json:"node"`
	From OutputState `json:"from"`
	To   OutputState `json:"to"`
}

// Reset records an input cleared during a pass because its value left the
// new domain or the node was uninstantiated.
type Reset struct {
	Node     string `json:"node"`
	Previous string `json:"previous"`
}

// Failure records an isolated domain or build error.
type Failure struct {
	Node    string `json:"node"`
	Message string `json:"message"`
}

// Result describes one propagation pass.
type Result struct {
	Pass        int                         `json:"pass"`
	Trigger     string                      `json:"trigger"`
	Order       []string                    `json:"order"`
	Resets      []Reset                     `json:"resets,omitempty"`
	Domains     map[string]selection.Domain `json:"domains,omitempty"`
	Artifacts   []Artifact                  `json:"artifacts,omitempty"`
	Transitions []Transition                `json:"transitions,omitempty"`
	Failures    []Failure                   `json:"failures,omitempty"`
}

// Artifact returns the artifact rebuilt for name in this pass.
func (r *Result) Artifact(name string) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Node == name {
			return a, true
		}
	}
	return Artifact{}, false
}
