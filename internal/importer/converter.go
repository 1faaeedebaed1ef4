package importer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/internal/onnx"
)

// Converter translates one node into target-runtime values. Inputs arrive
// resolved, in declared order, with null values for absent optional
// inputs. Converters must not mutate nodes visited earlier in the order.
type Converter func(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error)

// Registry maps operator type names to converters, with a designated
// fallback that attempts the engine's extension mechanism for unregistered
// operators.
type Registry struct {
	converters map[string]Converter
	fallback   Converter
}

// NewRegistry creates a registry holding all builtin converters and the
// plugin fallback.
func NewRegistry() *Registry {
	r := &Registry{
		converters: make(map[string]Converter),
		fallback:   convertPlugin,
	}
	r.registerElementWise()
	r.registerActivations()
	r.registerShapeOps()
	r.registerUtilityOps()
	return r
}

// Register adds or replaces the converter for an operator type.
func (r *Registry) Register(opType string, c Converter) {
	r.converters[opType] = c
}

// Resolve returns the converter for an operator type. The second result
// reports an exact match; when false, the returned converter is the
// fallback.
func (r *Registry) Resolve(opType string) (Converter, bool) {
	if c, ok := r.converters[opType]; ok {
		return c, true
	}
	return r.fallback, false
}

// Supports reports whether a converter is registered for the operator
// type. The fallback does not count.
func (r *Registry) Supports(opType string) bool {
	_, ok := r.converters[opType]
	return ok
}

// SupportedOps returns all registered operator types.
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.converters))
	for op := range r.converters {
		ops = append(ops, op)
	}
	return ops
}

// Context carries the per-import state converters operate on.
type Context struct {
	builder engine.Builder
	tensors *TensorRegistry
	ann     *Annotations
	log     *zap.Logger
	opset   int64
	counts  map[string]int
	rec     *importRecord
}

func newContext(builder engine.Builder, log *zap.Logger, opset int64, rec *importRecord) *Context {
	return &Context{
		builder: builder,
		tensors: newTensorRegistry(),
		ann:     newAnnotations(),
		log:     log,
		opset:   opset,
		counts:  make(map[string]int),
		rec:     rec,
	}
}

// RecordAlias notes that alias carries the same value as name. Converters
// for loop-style operators record the pairing so coverage analysis can
// follow a failing input one hop through the loop boundary.
func (c *Context) RecordAlias(name, alias string) {
	c.rec.aliases[name] = alias
}

// Builder returns the target graph builder.
func (c *Context) Builder() engine.Builder { return c.builder }

// Logger returns the import logger.
func (c *Context) Logger() *zap.Logger { return c.log }

// Annotations returns the side-channel metadata store.
func (c *Context) Annotations() *Annotations { return c.ann }

// Tensors returns the symbol table of produced values.
func (c *Context) Tensors() *TensorRegistry { return c.tensors }

// OpsetVersion returns the model's default opset version.
func (c *Context) OpsetVersion() int64 { return c.opset }

// LayerName returns a unique layer name for the node: the node's own name
// when present, otherwise one derived from the operator type.
func (c *Context) LayerName(node *onnx.NodeProto) string {
	base := node.Name
	if base == "" {
		base = fmt.Sprintf("(Unnamed %s)", node.OpType)
	}
	n := c.counts[base]
	c.counts[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n)
}

// TensorOf materializes a value as a runtime tensor. Constant weights are
// lowered to a constant layer on first use.
func (c *Context) TensorOf(v Value, name string) (engine.Tensor, *Error) {
	switch {
	case v.IsTensor():
		return v.Tensor(), nil
	case v.IsWeights():
		w := v.Weights()
		layer, err := c.builder.AddConstant(c.uniqueConstantName(name), w.DType, w.Dims, w.Data)
		if err != nil {
			return nil, asImportError(err)
		}
		return layer.Output(0), nil
	default:
		return nil, errf(KindInvalidGraph, "null value has no tensor form")
	}
}

func (c *Context) uniqueConstantName(base string) string {
	name := base + " (constant)"
	n := c.counts[name]
	c.counts[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s_%d", name, n)
}

// TensorInputs materializes every non-null input as a runtime tensor,
// preserving declared order. Null inputs stay nil.
func (c *Context) TensorInputs(node *onnx.NodeProto, inputs []Value) ([]engine.Tensor, *Error) {
	tensors := make([]engine.Tensor, len(inputs))
	for i, v := range inputs {
		if v.IsNull() {
			continue
		}
		t, err := c.TensorOf(v, node.Inputs[i])
		if err != nil {
			return nil, err
		}
		tensors[i] = t
	}
	return tensors, nil
}

// addLayer adds a single-output layer over the node's inputs.
func (c *Context) addLayer(kind engine.LayerKind, node *onnx.NodeProto, inputs []Value, outType engine.DataType) ([]Value, error) {
	tensors, cerr := c.TensorInputs(node, inputs)
	if cerr != nil {
		return nil, cerr
	}
	layer, err := c.builder.AddLayer(kind, c.LayerName(node), tensors, []engine.DataType{outType})
	if err != nil {
		return nil, err
	}
	return []Value{TensorValue(layer.Output(0))}, nil
}

// convertPlugin is the fallback converter: it asks the engine's extension
// mechanism to realize an operator that has no registered converter. The
// failure is reported as an unsupported operator when the engine offers no
// extension path at all.
func convertPlugin(ctx *Context, node *onnx.NodeProto, inputs []Value) ([]Value, error) {
	pb, ok := ctx.builder.(engine.PluginBuilder)
	if !ok {
		return nil, errf(KindUnsupportedOperator, "no converter for operator %q and the engine has no extension mechanism", node.OpType)
	}
	tensors, cerr := ctx.TensorInputs(node, inputs)
	if cerr != nil {
		return nil, cerr
	}
	attrs := make(map[string]string, len(node.Attributes))
	for i := range node.Attributes {
		a := &node.Attributes[i]
		attrs[a.Name] = string(a.S)
	}
	layer, err := pb.AddPlugin(ctx.LayerName(node), node.OpType, tensors, len(node.Outputs), attrs)
	if err != nil {
		return nil, &Error{
			Kind:  KindUnsupportedOperator,
			Node:  -1,
			Op:    node.OpType,
			Msg:   fmt.Sprintf("extension fallback failed for operator %q", node.OpType),
			Cause: err,
		}
	}
	outputs := make([]Value, layer.NumOutputs())
	for i := range outputs {
		outputs[i] = TensorValue(layer.Output(i))
	}
	return outputs, nil
}
