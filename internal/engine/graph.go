// Package engine is the reactive core of a dashboard: a Graph of input and
// output nodes declared once at start-up, and Sessions that hold one user's
// selections and recompute domains and artifacts whenever a selection
// changes.
//
// A Graph is immutable once sealed and may back any number of sessions.
// A Session is owned by a single caller and is not safe for concurrent use.
package engine

import (
	"fmt"

	"github.com/papapumpkin/scoreline/internal/dag"
	"github.com/papapumpkin/scoreline/internal/selection"
)

// Kind classifies a node.
type Kind int

const (
	// KindInput is a selection node that always exists.
	KindInput Kind = iota
	// KindDynamic is a selection node instantiated only while every
	// ancestor input is resolved.
	KindDynamic
	// KindOutput is a derived artifact rebuilt from its ancestor inputs.
	KindOutput
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindDynamic:
		return "dynamic"
	case KindOutput:
		return "output"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DomainFunc computes the legal values of an input node. It must be a pure
// function of the ancestor values visible through in.
type DomainFunc func(in Inputs) (selection.Domain, error)

// BuildFunc produces the artifact of an output node from its ancestor
// inputs. Returning an error yields a placeholder artifact carrying it.
type BuildFunc func(in Inputs) (Artifact, error)

type node struct {
	name     string
	kind     Kind
	ancestry []string
	domain   DomainFunc
	build    BuildFunc

	// inputs lists transitive ancestors in declaration order. Set by Seal.
	inputs []string
}

// Graph declares the nodes of a dashboard and how they depend on each other.
type Graph struct {
	nodes  map[string]*node
	order  []string
	dag    *dag.DAG
	sealed bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// DeclareInput registers a static input whose options are computed by fn
// from ancestry. Ancestors may be declared later, up to Seal.
func (g *Graph) DeclareInput(name string, ancestry []string, fn DomainFunc) error {
	return g.declare(&node{name: name, kind: KindInput, ancestry: ancestry, domain: fn})
}

// DeclareDynamic registers an input that exists only while all of its
// ancestor inputs are resolved. Its domain is recomputed from scratch
// whenever an ancestor changes.
func (g *Graph) DeclareDynamic(name string, ancestry []string, fn DomainFunc) error {
	return g.declare(&node{name: name, kind: KindDynamic, ancestry: ancestry, domain: fn})
}

// DeclareOutput registers a derived node rebuilt by fn from its ancestor
// inputs. Outputs cannot be ancestors of anything.
func (g *Graph) DeclareOutput(name string, ancestry []string, fn BuildFunc) error {
	return g.declare(&node{name: name, kind: KindOutput, ancestry: ancestry, build: fn})
}

func (g *Graph) declare(n *node) error {
	if g.sealed {
		return fmt.Errorf("%w: declaring %q", ErrSealed, n.name)
	}
	if n.name == "" {
		return fmt.Errorf("%w: empty node name", ErrUnknownNode)
	}
	if _, dup := g.nodes[n.name]; dup {
		return fmt.Errorf("%w: %s", dag.ErrDuplicateNode, n.name)
	}
	if (n.kind == KindOutput && n.build == nil) || (n.kind != KindOutput && n.domain == nil) {
		return fmt.Errorf("node %q: missing function", n.name)
	}
	n.ancestry = append([]string(nil), n.ancestry...)
	g.nodes[n.name] = n
	g.order = append(g.order, n.name)
	return nil
}

// Seal wires the declared dependencies. It fails with an error wrapping
// dag.ErrCycle if they form a cycle, ErrUnknownNode for an undeclared
// ancestor and ErrNotInput when an output is used as an ancestor. The
// graph cannot be changed afterwards.
func (g *Graph) Seal() error {
	if g.sealed {
		return ErrSealed
	}
	d := dag.New()
	for i, name := range g.order {
		if err := d.AddNode(name, i); err != nil {
			return err
		}
	}
	for _, name := range g.order {
		for _, anc := range g.nodes[name].ancestry {
			a, ok := g.nodes[anc]
			if !ok {
				return fmt.Errorf("%w: %q (ancestor of %q)", ErrUnknownNode, anc, name)
			}
			if a.kind == KindOutput {
				return fmt.Errorf("%w: %q is an output (ancestor of %q)", ErrNotInput, anc, name)
			}
			if err := d.AddEdge(name, anc); err != nil {
				return fmt.Errorf("node %q: %w", name, err)
			}
		}
	}
	for _, name := range g.order {
		g.nodes[name].inputs = d.Ancestors(name)
	}
	g.dag = d
	g.sealed = true
	return nil
}

// Sealed reports whether Seal has succeeded.
func (g *Graph) Sealed() bool { return g.sealed }

// Nodes returns every node name in declaration order.
func (g *Graph) Nodes() []string {
	if g.dag != nil {
		return g.dag.Nodes()
	}
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Order returns every node, each after all of its ancestors. Only valid
// after Seal.
func (g *Graph) Order() ([]string, error) {
	if !g.sealed {
		return nil, ErrNotSealed
	}
	return g.dag.TopologicalSort()
}

// Inputs returns the input node names (static and dynamic) in declaration order.
func (g *Graph) Inputs() []string {
	return g.filter(func(n *node) bool { return n.kind != KindOutput })
}

// Outputs returns the output node names in declaration order.
func (g *Graph) Outputs() []string {
	return g.filter(func(n *node) bool { return n.kind == KindOutput })
}

func (g *Graph) filter(keep func(*node) bool) []string {
	var out []string
	for _, name := range g.Nodes() {
		if keep(g.nodes[name]) {
			out = append(out, name)
		}
	}
	return out
}

// Kind returns the kind of name.
func (g *Graph) Kind(name string) (Kind, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return 0, false
	}
	return n.kind, true
}

// Parents returns the direct ancestors of name. Before Seal they are in
// the order declared, afterwards in declaration order of the ancestors.
func (g *Graph) Parents(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	if g.dag != nil {
		return g.dag.Parents(name)
	}
	out := make([]string, len(n.ancestry))
	copy(out, n.ancestry)
	return out
}

// Children returns the nodes declared directly on name, in declaration
// order. Only valid after Seal.
func (g *Graph) Children(name string) []string {
	if g.dag == nil {
		return nil
	}
	if _, ok := g.nodes[name]; !ok {
		return nil
	}
	return g.dag.Children(name)
}

// Ancestors returns the transitive ancestors of name in declaration order.
// Only valid after Seal.
func (g *Graph) Ancestors(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]string, len(n.inputs))
	copy(out, n.inputs)
	return out
}

// Descendants returns every node that transitively depends on name.
func (g *Graph) Descendants(name string) []string {
	if g.dag == nil {
		return nil
	}
	return g.dag.Descendants(name)
}

// TopoOrder returns dirty plus every transitive dependent, each after all
// of its ancestors, ties broken by declaration order.
func (g *Graph) TopoOrder(dirty []string) ([]string, error) {
	if !g.sealed {
		return nil, ErrNotSealed
	}
	for _, name := range dirty {
		if _, ok := g.nodes[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
		}
	}
	return g.dag.TopoOrder(dirty)
}

func (g *Graph) lookup(name string) (*node, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return n, nil
}
