package importer

import (
	"errors"
	"fmt"
)

// Kind classifies an import failure.
type Kind int

// Import failure kinds.
const (
	KindDeserialize Kind = iota
	KindCyclicGraph
	KindUnresolvedReference
	KindConflictingBinding
	KindConflictingAnnotation
	KindUnboundOutput
	KindUnsupportedOperator
	KindConverterFailure
	KindInvalidGraph
)

// String returns the kind name.
func (k Kind) String() string {
	names := [...]string{
		"deserialize failed", "cyclic graph", "unresolved reference",
		"conflicting binding", "conflicting annotation", "unbound output",
		"unsupported operator", "converter failure", "invalid graph",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Error is a structured import failure. Node is the index of the failing
// node in the source graph, or -1 when the failure is not node-scoped.
// Input names the offending graph-level input when the failure precedes
// node processing.
type Error struct {
	Kind  Kind
	Node  int
	Op    string
	Input string
	Msg   string
	Cause error
}

// Error renders the failure with its context.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	if e.Node >= 0 {
		msg = fmt.Sprintf("node %d [%s]: %s", e.Node, e.Op, msg)
	} else if e.Input != "" {
		msg = fmt.Sprintf("input %q: %s", e.Input, msg)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Cause }

// errf builds an Error without node context. The importer tags the node
// index as failures propagate out of the per-node dispatch loop.
func errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Node: -1, Msg: fmt.Sprintf(format, args...)}
}

// inputErrf builds an Error scoped to a graph-level input.
func inputErrf(kind Kind, input, format string, args ...interface{}) *Error {
	e := errf(kind, format, args...)
	e.Input = input
	return e
}

// asImportError extracts the structured error, wrapping foreign errors as
// converter failures.
func asImportError(err error) *Error {
	var ie *Error
	if errors.As(err, &ie) {
		return ie
	}
	return &Error{Kind: KindConverterFailure, Node: -1, Msg: err.Error(), Cause: err}
}
