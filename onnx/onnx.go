// Copyright 2026 Graft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package onnx exposes the model loader: it decodes serialized ONNX
// models into the in-memory graph structures the importer consumes.
//
// Example:
//
//	model, err := onnx.ParseFile("resnet50.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("graph %s with %d nodes\n", model.Graph.Name, len(model.Graph.Nodes))
package onnx

import (
	"github.com/graft-ml/graft/internal/onnx"
)

// Model structures decoded from the wire format.
type (
	// ModelProto is the top-level model message.
	ModelProto = onnx.ModelProto
	// GraphProto is the computation graph.
	GraphProto = onnx.GraphProto
	// NodeProto is one operation in the graph.
	NodeProto = onnx.NodeProto
	// TensorProto carries constant tensor data.
	TensorProto = onnx.TensorProto
	// ValueInfoProto declares an input or output.
	ValueInfoProto = onnx.ValueInfoProto
	// AttributeProto is one typed node attribute.
	AttributeProto = onnx.AttributeProto
	// ModelInfo summarizes a model without importing it.
	ModelInfo = onnx.ModelInfo
	// Attrs provides name-keyed attribute access.
	Attrs = onnx.Attrs
)

// ErrTextFormat is returned for text-format models, which the wire
// decoder does not handle.
var ErrTextFormat = onnx.ErrTextFormat

// Parse decodes a binary ONNX model.
func Parse(data []byte) (*ModelProto, error) {
	return onnx.Parse(data)
}

// ParseFile decodes a binary ONNX model from a file.
func ParseFile(path string) (*ModelProto, error) {
	return onnx.ParseFile(path)
}

// Load decodes a serialized model; textMode selects the protobuf text
// format.
func Load(data []byte, textMode bool) (*ModelProto, error) {
	return onnx.Load(data, textMode)
}

// Info extracts summary information from a parsed model.
func Info(model *ModelProto) *ModelInfo {
	return onnx.Info(model)
}

// NodeAttrs builds the attribute map for a node.
func NodeAttrs(node *NodeProto) Attrs {
	return onnx.NodeAttrs(node)
}
