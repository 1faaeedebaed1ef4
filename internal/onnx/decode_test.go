package onnx

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// Minimal protobuf wire encoder for building test fixtures.

func appendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

func appendVarintField(b []byte, num int, v uint64) []byte {
	b = appendVarint(b, uint64(num)<<3|wireVarint)
	return appendVarint(b, v)
}

func appendBytesField(b []byte, num int, data []byte) []byte {
	b = appendVarint(b, uint64(num)<<3|wireBytes)
	b = appendVarint(b, uint64(len(data)))
	return append(b, data...)
}

func appendStringField(b []byte, num int, s string) []byte {
	return appendBytesField(b, num, []byte(s))
}

func appendFloatField(b []byte, num int, f float32) []byte {
	b = appendVarint(b, uint64(num)<<3|wire32Bit)
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
}

func packedFloats(fs []float32) []byte {
	var b []byte
	for _, f := range fs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

// testModelBytes serializes a two-node model:
//
//	x, w -> MatMul -> h -> Relu -> y
func testModelBytes() []byte {
	var matmul []byte
	matmul = appendStringField(matmul, 1, "x")
	matmul = appendStringField(matmul, 1, "w")
	matmul = appendStringField(matmul, 2, "h")
	matmul = appendStringField(matmul, 3, "mm_0")
	matmul = appendStringField(matmul, 4, "MatMul")

	var attr []byte
	attr = appendStringField(attr, 1, "alpha")
	attr = appendFloatField(attr, 2, 0.5)
	attr = appendVarintField(attr, 20, AttributeProtoFloat)

	var relu []byte
	relu = appendStringField(relu, 1, "h")
	relu = appendStringField(relu, 2, "y")
	relu = appendStringField(relu, 3, "relu_0")
	relu = appendStringField(relu, 4, "Relu")
	relu = appendBytesField(relu, 5, attr)

	var weights []byte
	weights = appendVarintField(weights, 1, 2)
	weights = appendVarintField(weights, 1, 2)
	weights = appendVarintField(weights, 2, TensorProtoFloat)
	weights = appendBytesField(weights, 4, packedFloats([]float32{1, 2, 3, 4}))
	weights = appendStringField(weights, 8, "w")

	input := valueInfoBytes("x", TensorProtoFloat, []int64{-1, 2})
	output := valueInfoBytes("y", TensorProtoFloat, []int64{-1, 2})

	var graph []byte
	graph = appendBytesField(graph, 1, matmul)
	graph = appendBytesField(graph, 1, relu)
	graph = appendStringField(graph, 2, "test")
	graph = appendBytesField(graph, 5, weights)
	graph = appendBytesField(graph, 11, input)
	graph = appendBytesField(graph, 12, output)

	var opset []byte
	opset = appendVarintField(opset, 2, 13)

	var model []byte
	model = appendVarintField(model, 1, 8)
	model = appendStringField(model, 2, "pytorch")
	model = appendBytesField(model, 7, graph)
	model = appendBytesField(model, 8, opset)
	return model
}

// valueInfoBytes encodes a ValueInfoProto; -1 dims become symbolic.
func valueInfoBytes(name string, elemType int64, dims []int64) []byte {
	var shape []byte
	for _, d := range dims {
		var dim []byte
		if d < 0 {
			dim = appendStringField(dim, 2, "batch")
		} else {
			dim = appendVarintField(dim, 1, uint64(d))
		}
		shape = appendBytesField(shape, 1, dim)
	}
	var tensorType []byte
	tensorType = appendVarintField(tensorType, 1, uint64(elemType))
	tensorType = appendBytesField(tensorType, 2, shape)
	var typ []byte
	typ = appendBytesField(typ, 1, tensorType)
	var vi []byte
	vi = appendStringField(vi, 1, name)
	vi = appendBytesField(vi, 2, typ)
	return vi
}

func TestParse(t *testing.T) {
	model, err := Parse(testModelBytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if model.IRVersion != 8 {
		t.Errorf("IRVersion = %d, want 8", model.IRVersion)
	}
	if model.ProducerName != "pytorch" {
		t.Errorf("ProducerName = %q", model.ProducerName)
	}
	if model.OpsetVersion() != 13 {
		t.Errorf("OpsetVersion = %d, want 13", model.OpsetVersion())
	}

	graph := model.Graph
	if graph == nil {
		t.Fatal("model has no graph")
	}
	if graph.Name != "test" {
		t.Errorf("graph name = %q", graph.Name)
	}
	if len(graph.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(graph.Nodes))
	}
	mm := graph.Nodes[0]
	if mm.OpType != "MatMul" || mm.Name != "mm_0" {
		t.Errorf("unexpected first node: %+v", mm)
	}
	if len(mm.Inputs) != 2 || mm.Inputs[0] != "x" || mm.Inputs[1] != "w" {
		t.Errorf("unexpected inputs: %v", mm.Inputs)
	}
	if len(graph.Initializers) != 1 || graph.Initializers[0].Name != "w" {
		t.Fatalf("unexpected initializers: %+v", graph.Initializers)
	}
	w := graph.Initializers[0]
	if len(w.Dims) != 2 || w.Dims[0] != 2 || w.Dims[1] != 2 {
		t.Errorf("unexpected dims: %v", w.Dims)
	}
	if len(w.FloatData) != 4 || w.FloatData[3] != 4 {
		t.Errorf("unexpected float data: %v", w.FloatData)
	}
}

func TestParseDeclaredDims(t *testing.T) {
	model, err := Parse(testModelBytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	in := model.Graph.Inputs[0]
	if in.Name != "x" {
		t.Fatalf("input name = %q", in.Name)
	}
	dims := in.DeclaredDims()
	if len(dims) != 2 || dims[0] != -1 || dims[1] != 2 {
		t.Errorf("DeclaredDims = %v, want [-1 2]", dims)
	}
	if in.ElemType() != TensorProtoFloat {
		t.Errorf("ElemType = %d", in.ElemType())
	}
}

func TestParseTruncated(t *testing.T) {
	data := testModelBytes()
	if _, err := Parse(data[:len(data)-3]); err == nil {
		t.Fatal("expected error for truncated model")
	}
}

func TestLoadTextMode(t *testing.T) {
	if _, err := Load(testModelBytes(), true); !errors.Is(err, ErrTextFormat) {
		t.Fatalf("expected ErrTextFormat, got %v", err)
	}
}

func TestInfo(t *testing.T) {
	model, err := Parse(testModelBytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	info := Info(model)
	if info.NodeCount != 2 || info.InitializerCount != 1 {
		t.Errorf("unexpected counts: %+v", info)
	}
	if len(info.InputNames) != 1 || info.InputNames[0] != "x" {
		t.Errorf("InputNames = %v", info.InputNames)
	}
	if len(info.OutputNames) != 1 || info.OutputNames[0] != "y" {
		t.Errorf("OutputNames = %v", info.OutputNames)
	}
}

func TestNodeAttrs(t *testing.T) {
	model, err := Parse(testModelBytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	attrs := NodeAttrs(&model.Graph.Nodes[1])
	if !attrs.Has("alpha") {
		t.Fatal("missing alpha attribute")
	}
	if got := attrs.Float("alpha", 0); got != 0.5 {
		t.Errorf("alpha = %v, want 0.5", got)
	}
	if got := attrs.Int("missing", 7); got != 7 {
		t.Errorf("default not returned: %d", got)
	}
}
