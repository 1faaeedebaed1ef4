package importer

import (
	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/internal/onnx"
)

// registerShapeOps registers operators that rearrange or describe shapes.
func (r *Registry) registerShapeOps() {
	for _, op := range []string{"Reshape", "Transpose", "Squeeze", "Unsqueeze", "Flatten"} {
		r.Register(op, convertShuffle)
	}
	r.Register("Shape", convertShape)
	r.Register("Concat", convertConcat)
	r.Register("Gather", convertGather)
	r.Register("Slice", convertSlice)
	r.Register("Cast", convertCast)
}

func convertShuffle(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) < 1 {
		return nil, errf(KindConverterFailure, "%s expects at least 1 input, got %d", node.OpType, len(inputs))
	}
	return ctx.addLayer(engine.KindShuffle, node, inputs, inType(inputs))
}

// convertShape emits the shape descriptor of its input. Shape descriptors
// are int32-typed in the target representation.
func convertShape(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) != 1 {
		return nil, errf(KindConverterFailure, "Shape expects 1 input, got %d", len(inputs))
	}
	return ctx.addLayer(engine.KindShape, node, inputs, engine.Int32)
}

func convertConcat(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) < 1 {
		return nil, errf(KindConverterFailure, "Concat expects at least 1 input, got %d", len(inputs))
	}
	return ctx.addLayer(engine.KindConcat, node, inputs, inType(inputs))
}

func convertGather(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) != 2 {
		return nil, errf(KindConverterFailure, "Gather expects 2 inputs, got %d", len(inputs))
	}
	return ctx.addLayer(engine.KindGather, node, inputs, inType(inputs))
}

func convertSlice(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) < 1 {
		return nil, errf(KindConverterFailure, "Slice expects at least 1 input, got %d", len(inputs))
	}
	return ctx.addLayer(engine.KindSlice, node, inputs, inType(inputs))
}

func convertCast(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	if len(inputs) != 1 {
		return nil, errf(KindConverterFailure, "Cast expects 1 input, got %d", len(inputs))
	}
	attrs := onnx.NodeAttrs(node)
	to := attrs.Int("to", onnx.TensorProtoFloat)
	dt, ok := dtypeFromONNX(int32(to)) //nolint:gosec // G115: ONNX type enum fits in int32.
	if !ok {
		return nil, errf(KindConverterFailure, "Cast target type %d is not representable", to)
	}
	return ctx.addLayer(engine.KindCast, node, inputs, dt)
}
