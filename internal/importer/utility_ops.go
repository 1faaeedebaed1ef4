package importer

import (
	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/internal/onnx"
)

// registerUtilityOps registers pass-through, constant and reduction
// operators.
func (r *Registry) registerUtilityOps() {
	r.Register("Identity", convertIdentity)
	r.Register("Dropout", convertIdentity)
	r.Register("Constant", convertConstant)
	for _, op := range []string{"ReduceSum", "ReduceMean", "ReduceMax", "ReduceMin", "ReduceProd"} {
		r.Register(op, convertReduce)
	}
}

func convertIdentity(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) < 1 {
		return nil, errf(KindConverterFailure, "%s expects 1 input, got %d", node.OpType, len(inputs))
	}
	// Dropout's optional mask output has no inference-time meaning.
	if len(node.Outputs) > 1 {
		for _, name := range node.Outputs[1:] {
			if name != "" {
				return nil, errf(KindConverterFailure, "%s secondary outputs are not supported", node.OpType)
			}
		}
	}
	return ctx.addLayer(engine.KindIdentity, node, inputs[:1], inType(inputs))
}

// convertConstant produces weights directly; no layer is built until a
// consumer needs a tensor form.
func convertConstant(_ *Context, node *onnx.NodeProto, _ []Value) ([]Value, error) {
	attrs := onnx.NodeAttrs(node)
	proto := attrs.Tensor("value")
	if proto == nil {
		return nil, errf(KindConverterFailure, "Constant node carries no value attribute")
	}
	w, err := weightsFromProto(proto)
	if err != nil {
		return nil, err
	}
	return []Value{WeightsValue(w)}, nil
}

func convertReduce(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) < 1 {
		return nil, errf(KindConverterFailure, "%s expects at least 1 input, got %d", node.OpType, len(inputs))
	}
	return ctx.addLayer(engine.KindReduce, node, inputs, inType(inputs))
}
