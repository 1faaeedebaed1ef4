// Package importer converts a loaded computation graph into a target
// inference runtime, node by node, through pluggable per-operator
// converters.
//
// The conversion pass walks nodes in a dependency-respecting order,
// resolves each node's inputs from a per-import symbol table, dispatches
// to the converter registry, and registers the produced values under the
// node's output names. Side-channel metadata (tensor placement,
// calibration ranges, precision overrides) accumulates in an annotation
// store and is applied to the built graph once construction completes.
//
// When operator coverage is incomplete, Analyze computes the maximal
// partition of the graph into contiguous convertible segments instead of
// rejecting the whole model, supporting hybrid execution with a fallback
// runtime.
package importer
