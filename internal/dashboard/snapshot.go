package dashboard

import (
	"github.com/papapumpkin/scoreline/internal/engine"
	"github.com/papapumpkin/scoreline/internal/selection"
)

// InputState is one input node as a client sees it.
type InputState struct {
	Name         string           `json:"name"`
	Kind         string           `json:"kind"`
	Value        string           `json:"value,omitempty"`
	Instantiated bool             `json:"instantiated"`
	Domain       selection.Domain `json:"domain"`
}

// Snapshot is the full visible state of a session.
type Snapshot struct {
	ID      string            `json:"id"`
	Pass    int               `json:"pass"`
	Inputs  []InputState      `json:"inputs"`
	Outputs []engine.Artifact `json:"outputs"`
}

// Snap captures s. Inputs and outputs are listed in declaration order.
func Snap(s *engine.Session) Snapshot {
	g := s.Graph()
	snap := Snapshot{ID: s.ID, Outputs: s.Artifacts()}
	if last := s.Last(); last != nil {
		snap.Pass = last.Pass
	}
	for _, name := range g.Inputs() {
		kind, _ := g.Kind(name)
		d, _ := s.Options(name)
		v, _ := s.Get(name)
		snap.Inputs = append(snap.Inputs, InputState{
			Name:         name,
			Kind:         kind.String(),
			Value:        v,
			Instantiated: s.Instantiated(name),
			Domain:       d,
		})
	}
	return snap
}
