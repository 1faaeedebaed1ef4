// Copyright 2026 Graft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package importer is the public surface of the graph importer.
//
// An Importer converts a loaded ONNX model into a target inference
// runtime through the engine.Builder interface, and reports operator
// coverage as contiguous supported segments for hybrid execution.
//
// Example:
//
//	builder := mem.NewBuilder()
//	imp := importer.New(builder, importer.Options{})
//	model, err := onnx.ParseFile("resnet50.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := imp.Import(model); err != nil {
//	    for _, rec := range imp.Errors() {
//	        log.Println(rec)
//	    }
//	}
package importer

import (
	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/internal/importer"
)

// Core types re-exported from the implementation.
type (
	// Importer drives the conversion of one model at a time.
	Importer = importer.Importer
	// Options configures an Importer.
	Options = importer.Options
	// Error is a structured import failure.
	Error = importer.Error
	// Kind classifies an import failure.
	Kind = importer.Kind
	// Registry maps operator types to converters.
	Registry = importer.Registry
	// Converter translates one node into target-runtime values.
	Converter = importer.Converter
	// Context carries per-import state into converters.
	Context = importer.Context
	// Value is a bound value: runtime tensor handle or constant weights.
	Value = importer.Value
	// Weights is a constant tensor.
	Weights = importer.Weights
	// Segment is a contiguous run of supported nodes.
	Segment = importer.Segment
	// Report is the coverage result for one model.
	Report = importer.Report
)

// Import failure kinds.
const (
	KindDeserialize           = importer.KindDeserialize
	KindCyclicGraph           = importer.KindCyclicGraph
	KindUnresolvedReference   = importer.KindUnresolvedReference
	KindConflictingBinding    = importer.KindConflictingBinding
	KindConflictingAnnotation = importer.KindConflictingAnnotation
	KindUnboundOutput         = importer.KindUnboundOutput
	KindUnsupportedOperator   = importer.KindUnsupportedOperator
	KindConverterFailure      = importer.KindConverterFailure
	KindInvalidGraph          = importer.KindInvalidGraph
)

// ProducerMarker is the producer name that enables directive propagation.
const ProducerMarker = importer.ProducerMarker

// New creates an importer building into the given target graph builder.
func New(builder engine.Builder, opts Options) *Importer {
	return importer.New(builder, opts)
}

// NewRegistry creates a converter registry holding all builtin converters
// and the extension fallback.
func NewRegistry() *Registry {
	return importer.NewRegistry()
}

// TensorValue wraps a runtime tensor handle.
func TensorValue(t engine.Tensor) Value {
	return importer.TensorValue(t)
}

// WeightsValue wraps constant weights.
func WeightsValue(w *Weights) Value {
	return importer.WeightsValue(w)
}
