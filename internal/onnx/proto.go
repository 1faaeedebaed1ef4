package onnx

// Hand-written ONNX protobuf message structures. Only the fields the
// importer consumes are decoded; everything else is skipped on the wire.

// ModelProto is the top-level ONNX model message.
type ModelProto struct {
	IRVersion       int64
	OpsetImport     []OperatorSetID
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Graph           *GraphProto
	MetadataProps   []StringStringEntry
}

// OpsetVersion returns the version of the default (ai.onnx) opset, or 0 if
// the model declares none.
func (m *ModelProto) OpsetVersion() int64 {
	for _, opset := range m.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			return opset.Version
		}
	}
	return 0
}

// GraphProto is the computation graph: nodes plus named inputs, outputs and
// constant initializers.
type GraphProto struct {
	Name         string
	Nodes        []NodeProto
	Inputs       []ValueInfoProto
	Outputs      []ValueInfoProto
	Initializers []TensorProto
	ValueInfo    []ValueInfoProto
	DocString    string
}

// NodeProto is one operation in the graph. An empty string in Inputs marks
// an absent optional input.
type NodeProto struct {
	Name       string
	OpType     string
	Inputs     []string
	Outputs    []string
	Attributes []AttributeProto
	Domain     string
}

// TensorProto carries constant tensor data (initializers and tensor-valued
// attributes).
type TensorProto struct {
	Name      string
	DataType  int32
	Dims      []int64
	RawData   []byte
	FloatData []float32
	Int32Data []int32
	Int64Data []int64
}

// ValueInfoProto declares the name and type of a graph input or output.
type ValueInfoProto struct {
	Name string
	Type *TypeProto
}

// ElemType returns the declared element type, or TensorProtoUndefined when
// the value carries no type information.
func (v *ValueInfoProto) ElemType() int32 {
	if v.Type == nil || v.Type.TensorType == nil {
		return TensorProtoUndefined
	}
	return v.Type.TensorType.ElemType
}

// DeclaredDims returns the declared shape with -1 for symbolic dimensions,
// or nil when no shape is declared.
func (v *ValueInfoProto) DeclaredDims() []int64 {
	if v.Type == nil || v.Type.TensorType == nil || v.Type.TensorType.Shape == nil {
		return nil
	}
	shape := v.Type.TensorType.Shape
	dims := make([]int64, len(shape.Dims))
	for i, d := range shape.Dims {
		if d.DimParam != "" {
			dims[i] = -1
			continue
		}
		dims[i] = d.DimValue
	}
	return dims
}

// TypeProto wraps the tensor type variant. Sequence and map types are not
// decoded.
type TypeProto struct {
	TensorType *TensorTypeProto
}

// TensorTypeProto holds element type and shape of a tensor value.
type TensorTypeProto struct {
	ElemType int32
	Shape    *TensorShapeProto
}

// TensorShapeProto is an ordered list of dimensions.
type TensorShapeProto struct {
	Dims []DimensionProto
}

// DimensionProto is a single dimension: a fixed value or a symbolic name.
type DimensionProto struct {
	DimValue int64
	DimParam string
}

// AttributeProto is one typed node attribute.
type AttributeProto struct {
	Name    string
	Type    int32
	F       float32
	I       int64
	S       []byte
	T       *TensorProto
	Floats  []float32
	Ints    []int64
	Strings [][]byte
}

// OperatorSetID names an operator domain and its version.
type OperatorSetID struct {
	Domain  string
	Version int64
}

// StringStringEntry is a key-value metadata pair.
type StringStringEntry struct {
	Key   string
	Value string
}

// ONNX element types (TensorProto.DataType).
const (
	TensorProtoUndefined = 0
	TensorProtoFloat     = 1
	TensorProtoUint8     = 2
	TensorProtoInt8      = 3
	TensorProtoUint16    = 4
	TensorProtoInt16     = 5
	TensorProtoInt32     = 6
	TensorProtoInt64     = 7
	TensorProtoString    = 8
	TensorProtoBool      = 9
	TensorProtoFloat16   = 10
	TensorProtoDouble    = 11
	TensorProtoUint32    = 12
	TensorProtoUint64    = 13
)

// ONNX attribute types (AttributeProto.Type).
const (
	AttributeProtoUndefined = 0
	AttributeProtoFloat     = 1
	AttributeProtoInt       = 2
	AttributeProtoString    = 3
	AttributeProtoTensor    = 4
	AttributeProtoGraph     = 5
	AttributeProtoFloats    = 6
	AttributeProtoInts      = 7
	AttributeProtoStrings   = 8
)
