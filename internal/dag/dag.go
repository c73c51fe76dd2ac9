// Package dag provides the directed acyclic graph behind selection
// propagation. It supports cycle detection at edge insertion, stable
// topological ordering, and transitive ancestor/descendant queries.
package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when the graph contains a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// vertex is one node of the graph. order is the declaration sequence
// number; lower values are emitted first when several nodes are ready at
// the same time.
type vertex struct {
	id    string
	order int
}

// DAG represents a directed acyclic graph of selection and output nodes.
// Edges point from a node to its ancestors: if A is computed from B,
// there is an edge from A to B.
type DAG struct {
	nodes map[string]*vertex
	// adjacency maps nodeID → set of ancestor IDs (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps nodeID → set of dependent IDs (backward edges).
	reverse map[string]map[string]bool
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:     make(map[string]*vertex),
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
	}
}

// AddNode adds a node with the given ID and declaration order. Returns
// ErrDuplicateNode if a node with that ID already exists.
func (d *DAG) AddNode(id string, order int) error {
	if _, exists := d.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.nodes[id] = &vertex{id: id, order: order}
	d.adjacency[id] = make(map[string]bool)
	d.reverse[id] = make(map[string]bool)
	return nil
}

// AddEdge records that from is computed from to. Both nodes must
// already exist. Returns an error if either node is missing, the edge
// would create a self-loop, or the edge would introduce a cycle.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if d.adjacency[from][to] {
		return nil
	}
	// A path to → ... → from plus the new edge from → to closes a loop.
	if d.hasPath(to, from) {
		return fmt.Errorf("%w: edge %s → %s would create a cycle", ErrCycle, from, to)
	}
	d.adjacency[from][to] = true
	d.reverse[to][from] = true
	return nil
}

// Nodes returns all node IDs in declaration order.
func (d *DAG) Nodes() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	return d.orderSorted(ids)
}

// Parents returns the direct ancestors of id in declaration order.
func (d *DAG) Parents(id string) []string {
	return d.orderSorted(keys(d.adjacency[id]))
}

// Children returns the direct dependents of id in declaration order.
func (d *DAG) Children(id string) []string {
	return d.orderSorted(keys(d.reverse[id]))
}

// TopologicalSort returns every node ID in a valid topological order
// (ancestors before dependents). Returns ErrCycle if the graph contains
// a cycle.
func (d *DAG) TopologicalSort() ([]string, error) {
	all := make(map[string]bool, len(d.nodes))
	for id := range d.nodes {
		all[id] = true
	}
	return d.kahn(all)
}

// TopoOrder returns the given nodes plus all of their transitive
// dependents, ordered so that every node comes after all of its ancestors
// within the result. Ties are broken by declaration order, so the result
// is deterministic. Unknown IDs yield ErrNodeNotFound.
func (d *DAG) TopoOrder(dirty []string) ([]string, error) {
	closure := make(map[string]bool, len(dirty))
	for _, id := range dirty {
		if _, ok := d.nodes[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		closure[id] = true
		d.collectDescendants(id, closure)
	}
	return d.kahn(closure)
}

// Ancestors returns all transitive ancestors of the given node in
// declaration order. Returns nil if the node has no ancestors or does
// not exist.
func (d *DAG) Ancestors(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.collectAncestors(id, visited)
	if len(visited) == 0 {
		return nil
	}
	return d.orderSorted(keys(visited))
}

// Descendants returns all transitive dependents of the given node in
// declaration order. Returns nil if the node has no dependents or does
// not exist.
func (d *DAG) Descendants(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.collectDescendants(id, visited)
	if len(visited) == 0 {
		return nil
	}
	return d.orderSorted(keys(visited))
}

// kahn orders the subset of nodes in set. Edges to ancestors outside the
// subset are ignored; those nodes are not being recomputed.
func (d *DAG) kahn(set map[string]bool) ([]string, error) {
	inDegree := make(map[string]int, len(set))
	for id := range set {
		n := 0
		for dep := range d.adjacency[id] {
			if set[dep] {
				n++
			}
		}
		inDegree[id] = n
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	ready = d.orderSorted(ready)

	sorted := make([]string, 0, len(set))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		sorted = append(sorted, id)

		freed := false
		for dependent := range d.reverse[id] {
			if !set[dependent] {
				continue
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
				freed = true
			}
		}
		// Keep the whole frontier in declaration order so siblings freed by
		// different parents still come out in a stable sequence.
		if freed {
			ready = d.orderSorted(ready)
		}
	}

	if len(sorted) != len(set) {
		return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(set))
	}
	return sorted, nil
}

// hasPath reports whether there is a directed path from src to dst
// through the ancestor edges.
func (d *DAG) hasPath(src, dst string) bool {
	if src == dst {
		return false
	}
	visited := make(map[string]bool)
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range d.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// collectAncestors walks forward edges from id, collecting all reachable
// nodes.
func (d *DAG) collectAncestors(id string, visited map[string]bool) {
	for dep := range d.adjacency[id] {
		if !visited[dep] {
			visited[dep] = true
			d.collectAncestors(dep, visited)
		}
	}
}

// collectDescendants walks reverse edges from id, collecting all reachable
// nodes.
func (d *DAG) collectDescendants(id string, visited map[string]bool) {
	for dep := range d.reverse[id] {
		if !visited[dep] {
			visited[dep] = true
			d.collectDescendants(dep, visited)
		}
	}
}

// orderSorted returns a copy of ids sorted by declaration order, with the
// ID as tiebreaker.
func (d *DAG) orderSorted(ids []string) []string {
	if len(ids) <= 1 {
		return ids
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		oi := d.nodes[sorted[i]].order
		oj := d.nodes[sorted[j]].order
		if oi != oj {
			return oi < oj
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
