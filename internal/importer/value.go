package importer

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/internal/onnx"
)

// Weights is a constant tensor bound to a registry name: shape, element
// type and raw little-endian data.
type Weights struct {
	DType engine.DataType
	Dims  []int64
	Data  []byte
}

// Count returns the number of elements.
func (w *Weights) Count() int64 {
	count := int64(1)
	for _, d := range w.Dims {
		count *= d
	}
	return count
}

// Value is the tagged union bound to a tensor name: either a runtime
// tensor handle or constant weights, never both. The zero Value is the
// null placeholder used for reserved names and absent optional inputs.
type Value struct {
	tensor  engine.Tensor
	weights *Weights
}

// TensorValue wraps a runtime tensor handle.
func TensorValue(t engine.Tensor) Value { return Value{tensor: t} }

// WeightsValue wraps constant weights.
func WeightsValue(w *Weights) Value { return Value{weights: w} }

// IsTensor reports whether the value is a runtime tensor handle.
func (v Value) IsTensor() bool { return v.tensor != nil }

// IsWeights reports whether the value is a constant weight.
func (v Value) IsWeights() bool { return v.weights != nil }

// IsNull reports whether the value is the null placeholder.
func (v Value) IsNull() bool { return v.tensor == nil && v.weights == nil }

// Tensor returns the runtime tensor handle, or nil.
func (v Value) Tensor() engine.Tensor { return v.tensor }

// Weights returns the constant weights, or nil.
func (v Value) Weights() *Weights { return v.weights }

// equal reports whether two values are identical: the same tensor handle,
// or weights with matching type, shape and data.
func (v Value) equal(other Value) bool {
	if v.IsTensor() || other.IsTensor() {
		return v.tensor == other.tensor
	}
	if v.IsWeights() && other.IsWeights() {
		if v.weights == other.weights {
			return true
		}
		if v.weights.DType != other.weights.DType || len(v.weights.Dims) != len(other.weights.Dims) {
			return false
		}
		for i := range v.weights.Dims {
			if v.weights.Dims[i] != other.weights.Dims[i] {
				return false
			}
		}
		return bytes.Equal(v.weights.Data, other.weights.Data)
	}
	return v.IsNull() && other.IsNull()
}

// dtypeFromONNX maps an ONNX element type onto a runtime type.
func dtypeFromONNX(t int32) (engine.DataType, bool) {
	switch t {
	case onnx.TensorProtoFloat:
		return engine.Float, true
	case onnx.TensorProtoFloat16:
		return engine.Half, true
	case onnx.TensorProtoInt8:
		return engine.Int8, true
	case onnx.TensorProtoInt32:
		return engine.Int32, true
	case onnx.TensorProtoInt64:
		return engine.Int64, true
	case onnx.TensorProtoBool:
		return engine.Bool, true
	case onnx.TensorProtoUint8:
		return engine.Uint8, true
	default:
		return engine.Float, false
	}
}

// weightsFromProto converts an initializer into Weights. Data held in the
// legacy typed fields is re-encoded as little-endian raw bytes, so the
// weights never alias the decoded model.
func weightsFromProto(proto *onnx.TensorProto) (*Weights, *Error) {
	dtype, ok := dtypeFromONNX(proto.DataType)
	if !ok {
		return nil, errf(KindUnsupportedOperator, "initializer %q has unsupported element type %d", proto.Name, proto.DataType)
	}
	w := &Weights{DType: dtype, Dims: append([]int64(nil), proto.Dims...)}

	switch {
	case len(proto.RawData) > 0:
		w.Data = append([]byte(nil), proto.RawData...)
	case len(proto.FloatData) > 0:
		w.Data = make([]byte, 0, len(proto.FloatData)*4)
		for _, f := range proto.FloatData {
			w.Data = binary.LittleEndian.AppendUint32(w.Data, math.Float32bits(f))
		}
	case len(proto.Int32Data) > 0:
		w.Data = make([]byte, 0, len(proto.Int32Data)*4)
		for _, v := range proto.Int32Data {
			w.Data = binary.LittleEndian.AppendUint32(w.Data, uint32(v)) //nolint:gosec // G115: bit reinterpretation.
		}
	case len(proto.Int64Data) > 0:
		w.Data = make([]byte, 0, len(proto.Int64Data)*8)
		for _, v := range proto.Int64Data {
			w.Data = binary.LittleEndian.AppendUint64(w.Data, uint64(v)) //nolint:gosec // G115: bit reinterpretation.
		}
	}
	return w, nil
}
