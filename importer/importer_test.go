package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/engine/mem"
	"github.com/graft-ml/graft/importer"
	"github.com/graft-ml/graft/onnx"
)

func reluModel() *onnx.ModelProto {
	return &onnx.ModelProto{
		IRVersion: 8,
		Graph: &onnx.GraphProto{
			Name: "relu",
			Nodes: []onnx.NodeProto{
				{Name: "act", OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"y"}},
			},
			Inputs:  []onnx.ValueInfoProto{{Name: "x"}},
			Outputs: []onnx.ValueInfoProto{{Name: "y"}},
		},
	}
}

func TestImportWithExternalInput(t *testing.T) {
	b := mem.NewBuilder()
	x, err := b.AddInput("x", engine.Float, []int64{1, 4})
	require.NoError(t, err)

	imp := importer.New(b, importer.Options{
		ExternalInputs: map[string]engine.Tensor{"x": x},
	})
	require.NoError(t, imp.Import(reluModel()))

	require.Equal(t, 1, b.NumOutputs())
	assert.Equal(t, "y", b.Output(0).Name())
}

func TestCustomConverter(t *testing.T) {
	registry := importer.NewRegistry()
	registry.Register("Swish", func(ctx *importer.Context, node *onnx.NodeProto, inputs []importer.Value) ([]importer.Value, error) {
		tensors, err := ctx.TensorInputs(node, inputs)
		if err != nil {
			return nil, err
		}
		layer, aerr := ctx.Builder().AddLayer(engine.KindActivation, ctx.LayerName(node), tensors, []engine.DataType{engine.Float})
		if aerr != nil {
			return nil, aerr
		}
		return []importer.Value{importer.TensorValue(layer.Output(0))}, nil
	})

	model := reluModel()
	model.Graph.Nodes[0].OpType = "Swish"

	b := mem.NewBuilder()
	x, err := b.AddInput("x", engine.Float, []int64{1, 4})
	require.NoError(t, err)

	imp := importer.New(b, importer.Options{
		Converters:     registry,
		ExternalInputs: map[string]engine.Tensor{"x": x},
	})
	require.NoError(t, imp.Import(model))

	layer, ok := b.LayerByName("act")
	require.True(t, ok)
	assert.Equal(t, engine.KindActivation, layer.Kind())
}

func TestAnalyzeReportsKinds(t *testing.T) {
	model := reluModel()
	model.Graph.Nodes[0].OpType = "Unknown"

	b := mem.NewBuilder()
	x, err := b.AddInput("x", engine.Float, []int64{1, 4})
	require.NoError(t, err)

	imp := importer.New(b, importer.Options{
		ExternalInputs: map[string]engine.Tensor{"x": x},
	})
	report, err := imp.Analyze(model)
	require.NoError(t, err)
	assert.False(t, report.Supported)
	assert.Empty(t, report.Segments)
}
