package engine

import "github.com/papapumpkin/scoreline/internal/selection"

// Inputs is the view of the selection a domain or build function is
// allowed to see: only its declared ancestors, and of those only the ones
// whose value belongs to their freshly computed domain. Anything else
// reads as Unset even if the session still stores a value for it.
type Inputs struct {
	values   map[string]string
	inapt    map[string]bool
	declared map[string]bool
}

// NewInputs builds an Inputs holding values, with every key treated as a
// declared ancestor. It exists for calling domain and build functions
// directly.
func NewInputs(values map[string]string) Inputs {
	in := Inputs{
		values:   make(map[string]string, len(values)),
		declared: make(map[string]bool, len(values)),
	}
	for k, v := range values {
		in.declared[k] = true
		if v != selection.Unset {
			in.values[k] = v
		}
	}
	return in
}

// Value returns the validated value of an ancestor input.
func (in Inputs) Value(name string) (string, bool) {
	v, ok := in.values[name]
	return v, ok
}

// Get returns the validated value of an ancestor input, or Unset.
func (in Inputs) Get(name string) string {
	return in.values[name]
}

// Applicable reports whether name is a declared ancestor that has meaning
// in the current context.
func (in Inputs) Applicable(name string) bool {
	return in.declared[name] && !in.inapt[name]
}

// Snapshot returns a copy of the visible values.
func (in Inputs) Snapshot() map[string]string {
	out := make(map[string]string, len(in.values))
	for k, v := range in.values {
		out[k] = v
	}
	return out
}
