package importer

import (
	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/internal/onnx"
)

// registerActivations registers unary activation operators.
func (r *Registry) registerActivations() {
	for _, op := range []string{"Relu", "Sigmoid", "Tanh", "LeakyRelu", "Elu", "Softplus", "Erf"} {
		r.Register(op, convertActivation)
	}
	r.Register("Softmax", convertSoftmax)
}

func convertActivation(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) < 1 {
		return nil, errf(KindConverterFailure, "%s expects 1 input, got %d", node.OpType, len(inputs))
	}
	return ctx.addLayer(engine.KindActivation, node, inputs, inType(inputs))
}

func convertSoftmax(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) < 1 {
		return nil, errf(KindConverterFailure, "Softmax expects 1 input, got %d", len(inputs))
	}
	return ctx.addLayer(engine.KindSoftmax, node, inputs, inType(inputs))
}
