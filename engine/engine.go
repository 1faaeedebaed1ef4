// Copyright 2026 Graft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package engine defines the boundary between the graph importer and a
// target inference runtime.
//
// The importer drives graph construction exclusively through the Builder
// capability set: it creates input handles, adds layers, marks outputs and
// applies per-element metadata. It never depends on a concrete runtime.
// The engine/mem package provides an in-memory reference implementation
// used by tests and by coverage analysis.
package engine

// DataType is the element type of a runtime tensor.
type DataType int

// Runtime element types.
const (
	Float DataType = iota // 32-bit float
	Half                  // 16-bit float
	Int8
	Int32
	Int64
	Bool
	Uint8
)

// String returns the lower-case type name.
func (d DataType) String() string {
	switch d {
	case Float:
		return "float32"
	case Half:
		return "float16"
	case Int8:
		return "int8"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	case Uint8:
		return "uint8"
	default:
		return "unknown"
	}
}

// Location places a tensor on the device or in host memory.
type Location int

// Tensor placements.
const (
	Device Location = iota
	Host
)

// String returns the placement name used in directive attributes.
func (l Location) String() string {
	if l == Host {
		return "host"
	}
	return "device"
}

// LayerKind classifies a constructed layer. The importer uses the kind for
// shape-tensor legality checks; runtimes are free to refine it further.
type LayerKind int

// Layer kinds produced by the builtin converters.
const (
	KindIdentity LayerKind = iota
	KindConstant
	KindElementWise
	KindActivation
	KindMatMul
	KindSoftmax
	KindShuffle // reshape / transpose / squeeze / unsqueeze
	KindConcat
	KindShape
	KindGather
	KindSlice
	KindReduce
	KindCast
	KindPlugin
)

// String returns the kind name.
func (k LayerKind) String() string {
	names := [...]string{
		"identity", "constant", "elementwise", "activation", "matmul",
		"softmax", "shuffle", "concat", "shape", "gather", "slice",
		"reduce", "cast", "plugin",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// SupportsShapeOutput reports whether a layer kind may legally produce a
// shape-typed output in the target representation. Kinds outside this set
// that end up producing shape tensors are recorded by the post-processor
// and excluded from supported segments.
func SupportsShapeOutput(kind LayerKind) bool {
	switch kind {
	case KindIdentity, KindConstant, KindElementWise, KindShuffle,
		KindConcat, KindShape, KindGather, KindSlice, KindCast:
		return true
	default:
		return false
	}
}

// Tensor is a runtime tensor handle.
type Tensor interface {
	Name() string
	SetName(name string)

	Type() DataType
	SetType(dt DataType)

	// Dims returns the tensor dimensions, -1 for dynamic ones.
	Dims() []int64

	// IsShapeTensor reports whether the tensor's role in the target
	// representation is a shape descriptor rather than ordinary data.
	IsShapeTensor() bool

	// IsNetworkInput reports whether the tensor is a network input handle.
	IsNetworkInput() bool

	Location() Location
	SetLocation(loc Location)

	// DynamicRange returns the calibration range if one was set.
	DynamicRange() (min, max float32, ok bool)
	SetDynamicRange(min, max float32)
}

// Layer is a constructed graph element.
type Layer interface {
	Name() string
	Kind() LayerKind

	NumInputs() int
	Input(i int) Tensor
	NumOutputs() int
	Output(i int) Tensor

	// Precision returns the layer's compute precision override, if set.
	Precision() (DataType, bool)
	SetPrecision(dt DataType)
	ResetPrecision()

	// SetOutputType overrides the element type of output i.
	SetOutputType(i int, dt DataType)
	ResetOutputType(i int)
}

// Builder is the minimal sink interface the importer constructs a graph
// through.
type Builder interface {
	// AddInput creates a network input handle. Dims may contain -1 for
	// dynamic dimensions.
	AddInput(name string, dt DataType, dims []int64) (Tensor, error)

	// AddLayer adds a layer consuming the given tensors. One output tensor
	// is created per entry of outputTypes.
	AddLayer(kind LayerKind, name string, inputs []Tensor, outputTypes []DataType) (Layer, error)

	// AddConstant adds a constant layer carrying weight data.
	AddConstant(name string, dt DataType, dims []int64, data []byte) (Layer, error)

	// MarkOutput marks a tensor as a network output.
	MarkOutput(t Tensor) error

	NumInputs() int
	Input(i int) Tensor
	NumOutputs() int
	Output(i int) Tensor
	NumLayers() int
	Layer(i int) Layer

	// TensorByName finds any tensor the builder knows by name.
	TensorByName(name string) (Tensor, bool)
	// LayerByName finds a layer by name.
	LayerByName(name string) (Layer, bool)
}

// PluginBuilder is an optional Builder capability: a runtime-specific
// extension mechanism for operators without a registered converter. The
// fallback converter uses it when present.
type PluginBuilder interface {
	// AddPlugin adds an opaque runtime extension layer for the given
	// operator type. Fails if the runtime has no extension registered
	// for op.
	AddPlugin(name, op string, inputs []Tensor, numOutputs int, attrs map[string]string) (Layer, error)
}
