package engine

import "errors"

// Sentinel errors for graph configuration and session events.
var (
	// ErrUnknownNode indicates a reference to a node that was never declared.
	ErrUnknownNode = errors.New("unknown node")
	// ErrSealed indicates a declaration on a graph that has already been sealed.
	ErrSealed = errors.New("graph is sealed")
	// ErrNotSealed indicates a session started on a graph that was never sealed.
	ErrNotSealed = errors.New("graph is not sealed")
	// ErrNotInput indicates an operation that needs an input node was given
	// an output, or an output declared another output as an ancestor.
	ErrNotInput = errors.New("not an input node")
	// ErrPanic wraps a value recovered from a panicking domain or build function.
	ErrPanic = errors.New("node function panicked")
)
