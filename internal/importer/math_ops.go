package importer

import (
	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/internal/onnx"
)

// inType returns the element type of the first non-null input, defaulting
// to float32 for inputless nodes.
func inType(inputs []Value) engine.DataType {
	for _, v := range inputs {
		if v.IsTensor() {
			return v.Tensor().Type()
		}
		if v.IsWeights() {
			return v.Weights().DType
		}
	}
	return engine.Float
}

// registerElementWise registers binary math and matrix operators.
func (r *Registry) registerElementWise() {
	for _, op := range []string{"Add", "Sub", "Mul", "Div", "Pow", "Min", "Max"} {
		r.Register(op, convertElementWise)
	}
	r.Register("MatMul", convertMatMul)
	r.Register("Gemm", convertMatMul)
}

func convertElementWise(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) < 2 {
		return nil, errf(KindConverterFailure, "%s expects at least 2 inputs, got %d", node.OpType, len(inputs))
	}
	return ctx.addLayer(engine.KindElementWise, node, inputs, inType(inputs))
}

func convertMatMul(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) < 2 {
		return nil, errf(KindConverterFailure, "%s expects at least 2 inputs, got %d", node.OpType, len(inputs))
	}
	return ctx.addLayer(engine.KindMatMul, node, inputs, inType(inputs))
}
