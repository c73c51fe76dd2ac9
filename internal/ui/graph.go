package ui

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/scoreline/internal/ansi"
	"github.com/papapumpkin/scoreline/internal/engine"
)

// Node states shown by GraphRenderer.
const (
	NodeSet       = "set"
	NodeUnset     = "unset"
	NodeHidden    = "hidden" // dynamic input not instantiated
	NodeInapt     = "n/a"    // input with no meaning in the current context
	NodeFailed    = "failed"
)

// GraphRenderer draws a selection graph one layer per line. A node's layer
// is one more than the deepest of its parents, so every arrow points down
// the page.
type GraphRenderer struct {
	// UseColor controls whether ANSI escape codes are emitted.
	UseColor bool

	// StatusFunc returns the state label of a node. If nil, nodes are drawn
	// without state.
	StatusFunc func(name string) string
}

// Render produces the drawing of g, which must be sealed.
func (r *GraphRenderer) Render(g *engine.Graph) (string, error) {
	order, err := g.Order()
	if err != nil {
		return "", err
	}

	depth := make(map[string]int, len(order))
	var layers [][]string
	for _, name := range order {
		d := 0
		for _, p := range g.Parents(name) {
			if depth[p]+1 > d {
				d = depth[p] + 1
			}
		}
		depth[name] = d
		for len(layers) <= d {
			layers = append(layers, nil)
		}
		layers[d] = append(layers[d], name)
	}

	var sb strings.Builder
	for li, layer := range layers {
		label := fmt.Sprintf("Layer %d: ", li)
		sb.WriteString(ansi.Wrap(r.UseColor, ansi.Dim, label))
		for ni, name := range layer {
			if ni > 0 {
				sb.WriteString(strings.Repeat(" ", len(label)))
			}
			node := r.node(g, name)
			sb.WriteString(node)
			for ci, child := range g.Children(name) {
				if ci > 0 {
					sb.WriteByte('\n')
					sb.WriteString(strings.Repeat(" ", len(label)+ansi.VisibleLen(node)))
				}
				sb.WriteString(" → ")
				sb.WriteString(ansi.Wrap(r.UseColor, ansi.Dim, child))
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// node renders a single node as [name] or [name: state].
func (r *GraphRenderer) node(g *engine.Graph, name string) string {
	kind, _ := g.Kind(name)
	text := name
	state := ""
	if r.StatusFunc != nil {
		state = r.StatusFunc(name)
		text += ": " + state
	}
	lb, rb := "[", "]"
	if kind == engine.KindOutput {
		lb, rb = "(", ")"
	}
	if kind == engine.KindDynamic {
		lb, rb = "{", "}"
	}
	return ansi.Wrap(r.UseColor, nodeColor(state), lb+text+rb)
}

func nodeColor(state string) string {
	switch state {
	case NodeSet, engine.StateReady.String():
		return ansi.Green
	case engine.StatePartial.String():
		return ansi.Yellow
	case NodeFailed:
		return ansi.Red
	case NodeHidden, NodeInapt:
		return ansi.Dim
	case "":
		return ""
	default:
		return ansi.Blue
	}
}

// SessionStatus returns a StatusFunc reporting the live state of s.
func SessionStatus(s *engine.Session) func(string) string {
	g := s.Graph()
	return func(name string) string {
		kind, _ := g.Kind(name)
		if kind == engine.KindOutput {
			if a, ok := s.Artifact(name); ok && a.Err != "" {
				return NodeFailed
			}
			return s.OutputState(name).String()
		}
		if !s.Instantiated(name) {
			return NodeHidden
		}
		if d, err := s.Options(name); err == nil && d.NotApplicable {
			return NodeInapt
		}
		if _, ok := s.Get(name); ok {
			return NodeSet
		}
		return NodeUnset
	}
}
