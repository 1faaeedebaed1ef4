package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-ml/graft/engine/mem"
	"github.com/graft-ml/graft/internal/onnx"
)

func TestAnalyzeFullySupported(t *testing.T) {
	b := mem.NewBuilder()
	imp := New(b, Options{})
	report, err := imp.Analyze(chainModel())
	require.NoError(t, err)

	assert.True(t, report.Supported)
	require.Len(t, report.Segments, 1)
	assert.Equal(t, []int{0, 1}, report.Segments[0].Nodes)
	assert.True(t, report.Segments[0].Supported)

	// The trial import must not leak into the real builder.
	assert.Equal(t, 0, b.NumLayers())
	assert.Equal(t, 0, b.NumInputs())
}

func TestAnalyzeUnsupportedNodeSplitsGraph(t *testing.T) {
	// A -> B -> C where B has no converter and no extension. C is cut too:
	// its input comes from a node the runtime cannot execute.
	model := testModel(&onnx.GraphProto{
		Name: "holey",
		Nodes: []onnx.NodeProto{
			opNode("Relu", "a", []string{"x"}, []string{"v"}),
			opNode("Magic", "b", []string{"v"}, []string{"w"}),
			opNode("Relu", "c", []string{"w"}, []string{"y"}),
		},
		Inputs:  []onnx.ValueInfoProto{valueInfo("x", onnx.TensorProtoFloat, []int64{1, 4})},
		Outputs: []onnx.ValueInfoProto{valueInfo("y", onnx.TensorProtoFloat, nil)},
	})
	imp := New(mem.NewBuilder(), Options{})
	report, err := imp.Analyze(model)
	require.NoError(t, err)

	assert.False(t, report.Supported)
	require.Len(t, report.Segments, 1)
	assert.Equal(t, []int{0}, report.Segments[0].Nodes)
	assert.False(t, report.Segments[0].Supported)
}

func TestAnalyzeIndependentChains(t *testing.T) {
	// Two disjoint chains; the unsupported node only cuts its own chain.
	model := testModel(&onnx.GraphProto{
		Name: "parallel",
		Nodes: []onnx.NodeProto{
			opNode("Relu", "a0", []string{"x0"}, []string{"h0"}),
			opNode("Relu", "a1", []string{"h0"}, []string{"y0"}),
			opNode("Magic", "b0", []string{"x1"}, []string{"h1"}),
			opNode("Relu", "b1", []string{"h1"}, []string{"y1"}),
		},
		Inputs: []onnx.ValueInfoProto{
			valueInfo("x0", onnx.TensorProtoFloat, []int64{1, 4}),
			valueInfo("x1", onnx.TensorProtoFloat, []int64{1, 4}),
		},
		Outputs: []onnx.ValueInfoProto{
			valueInfo("y0", onnx.TensorProtoFloat, nil),
			valueInfo("y1", onnx.TensorProtoFloat, nil),
		},
	})
	imp := New(mem.NewBuilder(), Options{})
	report, err := imp.Analyze(model)
	require.NoError(t, err)

	assert.False(t, report.Supported)
	var covered []int
	for _, seg := range report.Segments {
		covered = append(covered, seg.Nodes...)
	}
	assert.Contains(t, covered, 0)
	assert.Contains(t, covered, 1)
	assert.NotContains(t, covered, 2)
	assert.NotContains(t, covered, 3)
}

func TestAnalyzeThreeChainsSingleSegment(t *testing.T) {
	// Fully supported independent chains merge into one segment; each
	// chain's internal order is preserved.
	model := testModel(&onnx.GraphProto{
		Name: "chains",
		Nodes: []onnx.NodeProto{
			opNode("Relu", "a0", []string{"x0"}, []string{"h0"}),
			opNode("Relu", "a1", []string{"h0"}, []string{"y0"}),
			opNode("Relu", "b0", []string{"x1"}, []string{"h1"}),
			opNode("Relu", "b1", []string{"h1"}, []string{"y1"}),
			opNode("Relu", "c0", []string{"x2"}, []string{"h2"}),
			opNode("Relu", "c1", []string{"h2"}, []string{"y2"}),
		},
		Inputs: []onnx.ValueInfoProto{
			valueInfo("x0", onnx.TensorProtoFloat, []int64{1, 4}),
			valueInfo("x1", onnx.TensorProtoFloat, []int64{1, 4}),
			valueInfo("x2", onnx.TensorProtoFloat, []int64{1, 4}),
		},
		Outputs: []onnx.ValueInfoProto{
			valueInfo("y0", onnx.TensorProtoFloat, nil),
			valueInfo("y1", onnx.TensorProtoFloat, nil),
			valueInfo("y2", onnx.TensorProtoFloat, nil),
		},
	})
	imp := New(mem.NewBuilder(), Options{})
	report, err := imp.Analyze(model)
	require.NoError(t, err)

	assert.True(t, report.Supported)
	require.Len(t, report.Segments, 1)
	seg := report.Segments[0]
	assert.Len(t, seg.Nodes, 6)

	pos := make(map[int]int, len(seg.Nodes))
	for i, n := range seg.Nodes {
		pos[n] = i
	}
	for head := 0; head < 6; head += 2 {
		assert.Less(t, pos[head], pos[head+1], "chain starting at node %d out of order", head)
	}
}

func TestAnalyzeFailingInputCutsConsumers(t *testing.T) {
	model := testModel(&onnx.GraphProto{
		Name: "badinput",
		Nodes: []onnx.NodeProto{
			opNode("Relu", "a", []string{"x"}, []string{"y"}),
		},
		Inputs:  []onnx.ValueInfoProto{valueInfo("x", onnx.TensorProtoFloat, []int64{1, 4})},
		Outputs: []onnx.ValueInfoProto{valueInfo("y", onnx.TensorProtoFloat, nil)},
	})
	// Rank-mismatched override makes the input itself unusable.
	imp := New(mem.NewBuilder(), Options{InputDims: map[string][]int64{"x": {8}}})
	report, err := imp.Analyze(model)
	require.NoError(t, err)

	assert.False(t, report.Supported)
	assert.Empty(t, report.Segments)
}

func TestAnalyzeIllegalShapeOutput(t *testing.T) {
	// Shape -> ReduceSum keeps the result in the shape domain, but a reduce
	// layer cannot legally emit a shape-typed tensor. The producing node and
	// everything downstream is excluded.
	model := testModel(&onnx.GraphProto{
		Name: "shapereduce",
		Nodes: []onnx.NodeProto{
			opNode("Shape", "shape", []string{"x"}, []string{"s"}),
			opNode("ReduceSum", "sum", []string{"s"}, []string{"r"}),
			opNode("Identity", "id", []string{"r"}, []string{"y"}),
		},
		Inputs:  []onnx.ValueInfoProto{valueInfo("x", onnx.TensorProtoFloat, []int64{1, 4})},
		Outputs: []onnx.ValueInfoProto{valueInfo("y", onnx.TensorProtoInt32, nil)},
	})
	imp := New(mem.NewBuilder(), Options{})
	report, err := imp.Analyze(model)
	require.NoError(t, err)

	assert.False(t, report.Supported)
	require.Len(t, report.Segments, 1)
	assert.Equal(t, []int{0}, report.Segments[0].Nodes)
}

func TestAnalyzeCyclicGraphFails(t *testing.T) {
	model := testModel(&onnx.GraphProto{
		Name: "cyclic",
		Nodes: []onnx.NodeProto{
			opNode("Add", "add", []string{"x", "b"}, []string{"a"}),
			opNode("Relu", "relu", []string{"a"}, []string{"b"}),
		},
		Inputs:  []onnx.ValueInfoProto{valueInfo("x", onnx.TensorProtoFloat, []int64{1})},
		Outputs: []onnx.ValueInfoProto{valueInfo("a", onnx.TensorProtoFloat, nil)},
	})
	imp := New(mem.NewBuilder(), Options{})
	_, err := imp.Analyze(model)
	require.Error(t, err)
}

func TestAnalyzeNoGraph(t *testing.T) {
	imp := New(mem.NewBuilder(), Options{})
	_, err := imp.Analyze(&onnx.ModelProto{})
	require.Error(t, err)
}
