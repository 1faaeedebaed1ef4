package onnx

import (
	"os"

	"github.com/pkg/errors"
)

// ErrTextFormat is returned when a model is supplied in the protobuf text
// format, which the wire decoder does not handle.
var ErrTextFormat = errors.New("onnx: text-format models are not supported")

// Parse decodes a binary ONNX model.
func Parse(data []byte) (*ModelProto, error) {
	d := &decoder{data: data}
	model := &ModelProto{}
	if err := d.model(model); err != nil {
		return nil, errors.Wrap(err, "failed to decode model")
	}
	return model, nil
}

// ParseFile decodes a binary ONNX model from a file.
//
//nolint:gosec // G304: path is supplied by the caller, loading it is the point.
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model file")
	}
	return Parse(data)
}

// Load decodes a serialized model. textMode selects the protobuf text
// format, which is rejected with ErrTextFormat.
func Load(data []byte, textMode bool) (*ModelProto, error) {
	if textMode {
		return nil, ErrTextFormat
	}
	return Parse(data)
}

// ModelInfo summarizes a model without importing it.
type ModelInfo struct {
	IRVersion        int64
	OpsetVersion     int64
	ProducerName     string
	ProducerVersion  string
	Domain           string
	ModelVersion     int64
	InputNames       []string
	OutputNames      []string
	NodeCount        int
	InitializerCount int
}

// Info extracts summary information from a parsed model. Graph inputs that
// are backed by initializers are not reported as inputs.
func Info(model *ModelProto) *ModelInfo {
	info := &ModelInfo{
		IRVersion:       model.IRVersion,
		OpsetVersion:    model.OpsetVersion(),
		ProducerName:    model.ProducerName,
		ProducerVersion: model.ProducerVersion,
		Domain:          model.Domain,
		ModelVersion:    model.ModelVersion,
	}
	if model.Graph == nil {
		return info
	}
	graph := model.Graph
	initNames := make(map[string]bool, len(graph.Initializers))
	for i := range graph.Initializers {
		initNames[graph.Initializers[i].Name] = true
	}
	for i := range graph.Inputs {
		if !initNames[graph.Inputs[i].Name] {
			info.InputNames = append(info.InputNames, graph.Inputs[i].Name)
		}
	}
	for i := range graph.Outputs {
		info.OutputNames = append(info.OutputNames, graph.Outputs[i].Name)
	}
	info.NodeCount = len(graph.Nodes)
	info.InitializerCount = len(graph.Initializers)
	return info
}
