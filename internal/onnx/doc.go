// Package onnx loads serialized ONNX models into the in-memory graph
// structures consumed by the importer.
//
// The package implements a hand-written protobuf wire decoder rather than
// depending on generated protobuf code. Only the messages the importer
// needs are decoded:
//
//   - ModelProto: model metadata, opset imports and the graph
//   - GraphProto: nodes, inputs, outputs and initializers
//   - NodeProto: one operation (op type, named inputs/outputs, attributes)
//   - TensorProto: constant tensor data
//   - ValueInfoProto: declared input/output name and type
//
// Unknown fields are skipped, so models produced by newer exporters still
// load as long as the core graph structure is intact.
package onnx
