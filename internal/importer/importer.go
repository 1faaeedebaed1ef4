package importer

import (
	"go.uber.org/zap"

	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/internal/onnx"
)

// ProducerMarker is the producer name written into models emitted by this
// pipeline. Importing a model carrying the marker enables propagation of
// per-node directive attributes.
const ProducerMarker = "graft"

// Directive attributes read from marker-produced models.
const (
	attrOutputsLoc = "graft_outputs_loc"
	attrRangeMin   = "graft_outputs_range_min"
	attrRangeMax   = "graft_outputs_range_max"
	attrPrecision  = "graft_layer_precision"
)

// minOpsetVersion is the oldest default-domain opset the converters are
// validated against. Older models import with a warning.
const minOpsetVersion = 7

// maxErrorHistory bounds the error records retained across Import calls on
// one Importer. Older records are dropped; Reset clears the history.
const maxErrorHistory = 64

// Options configures an Importer.
type Options struct {
	// Logger receives structured import diagnostics. Defaults to a no-op
	// logger.
	Logger *zap.Logger

	// Converters is the operator converter registry. Defaults to
	// NewRegistry().
	Converters *Registry

	// InputDims overrides the declared dimensions of named graph inputs.
	// An override must match the declared rank.
	InputDims map[string][]int64

	// ExternalInputs supplies pre-built input handles by name. They take
	// priority over declared input types and dimensions.
	ExternalInputs map[string]engine.Tensor

	// ExternalWeights binds named graph inputs to caller-supplied weight
	// data, taking priority over graph initializers of the same name.
	ExternalWeights map[string]*Weights

	// TrialBuilder constructs the isolated builder used by Analyze.
	// Defaults to the in-memory reference builder.
	TrialBuilder func() engine.Builder
}

// Importer converts a loaded model into a target graph, node by node,
// through the converter registry.
//
// Each Import call owns a fresh symbol table and annotation store; after a
// failed call the partially built target graph must be discarded. The
// importer itself retains only a bounded history of structured errors,
// cleared by Reset.
type Importer struct {
	builder    engine.Builder
	converters *Registry
	opts       Options
	log        *zap.Logger
	errs       []*Error
}

// New creates an importer building into the given target graph builder.
func New(builder engine.Builder, opts Options) *Importer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	converters := opts.Converters
	if converters == nil {
		converters = NewRegistry()
	}
	return &Importer{
		builder:    builder,
		converters: converters,
		opts:       opts,
		log:        log,
	}
}

// Builder returns the target graph builder this importer builds into.
func (im *Importer) Builder() engine.Builder { return im.builder }

// Errors returns the retained error history, most recent last.
func (im *Importer) Errors() []*Error { return im.errs }

// Reset clears the retained error history.
func (im *Importer) Reset() { im.errs = nil }

func (im *Importer) recordError(e *Error) {
	im.errs = append(im.errs, e)
	if len(im.errs) > maxErrorHistory {
		im.errs = im.errs[len(im.errs)-maxErrorHistory:]
	}
}

// Import converts the model into the target graph. The first failure
// aborts the pass; the returned error carries the failing node index or
// input name.
func (im *Importer) Import(model *onnx.ModelProto) error {
	rec := newImportRecord()
	if err := im.importModel(im.builder, model, rec); err != nil {
		im.recordError(err)
		return err
	}
	return nil
}

// ImportBytes deserializes and imports a model. textMode selects the
// protobuf text format.
func (im *Importer) ImportBytes(data []byte, textMode bool) error {
	model, err := onnx.Load(data, textMode)
	if err != nil {
		e := &Error{Kind: KindDeserialize, Node: -1, Msg: "failed to deserialize model", Cause: err}
		im.recordError(e)
		return e
	}
	return im.Import(model)
}

// importRecord captures per-pass observations needed by coverage
// analysis: which nodes converted successfully, tensors flagged as illegal
// shape outputs, and name aliases recorded by converters.
type importRecord struct {
	converted           map[int]bool
	illegalShapeOutputs map[string]bool
	aliases             map[string]string
}

func newImportRecord() *importRecord {
	return &importRecord{
		converted:           make(map[int]bool),
		illegalShapeOutputs: make(map[string]bool),
		aliases:             make(map[string]string),
	}
}

// importModel drives one full conversion pass against the given builder.
func (im *Importer) importModel(builder engine.Builder, model *onnx.ModelProto, rec *importRecord) *Error {
	if model.Graph == nil {
		return errf(KindInvalidGraph, "model has no graph")
	}
	graph := model.Graph

	if v := model.OpsetVersion(); v > 0 && v < minOpsetVersion {
		im.log.Warn("model uses an old opset; conversion is not guaranteed",
			zap.Int64("opset", v), zap.Int64("min_supported", minOpsetVersion))
	}

	ctx := newContext(builder, im.log, model.OpsetVersion(), rec)

	// Reserve declared output names before anything produces them, so a
	// node producing a declared output is recognized as its natural
	// producer.
	for i := range graph.Outputs {
		ctx.tensors.Reserve(graph.Outputs[i].Name)
	}

	if err := im.importInitializers(ctx, graph); err != nil {
		return err
	}
	if err := im.importInputs(ctx, graph); err != nil {
		return err
	}
	deserializing := model.ProducerName == ProducerMarker
	if err := im.parseNodes(ctx, graph, deserializing, rec); err != nil {
		return err
	}
	if err := im.finalizeOutputs(ctx, graph); err != nil {
		return err
	}
	if err := ctx.ann.apply(builder); err != nil {
		return err
	}
	fixupShapeOutputs(builder, im.log, rec)
	return nil
}

// importInitializers binds every initializer as a constant value.
// Caller-supplied weight bindings take priority over same-named
// initializers.
func (im *Importer) importInitializers(ctx *Context, graph *onnx.GraphProto) *Error {
	for i := range graph.Initializers {
		init := &graph.Initializers[i]
		if _, ok := im.opts.ExternalWeights[init.Name]; ok {
			continue
		}
		im.log.Debug("importing initializer", zap.String("name", init.Name))
		w, err := weightsFromProto(init)
		if err != nil {
			err.Input = init.Name
			return err
		}
		if err := ctx.tensors.Register(init.Name, WeightsValue(w)); err != nil {
			err.Input = init.Name
			return err
		}
	}
	for name, w := range im.opts.ExternalWeights {
		if err := ctx.tensors.Register(name, WeightsValue(w)); err != nil {
			err.Input = name
			return err
		}
	}
	return nil
}

// importInputs registers every declared graph input. Caller-supplied
// handles and weight bindings resolve first; remaining inputs become new
// runtime input handles. Initializer-backed inputs are not network inputs.
func (im *Importer) importInputs(ctx *Context, graph *onnx.GraphProto) *Error {
	initializers := make(map[string]bool, len(graph.Initializers))
	for i := range graph.Initializers {
		initializers[graph.Initializers[i].Name] = true
	}

	for i := range graph.Inputs {
		input := &graph.Inputs[i]
		name := input.Name
		if _, ok := im.opts.ExternalWeights[name]; ok {
			continue // already bound by importInitializers
		}
		if initializers[name] {
			continue
		}
		if t, ok := im.opts.ExternalInputs[name]; ok {
			if err := ctx.tensors.Register(name, TensorValue(t)); err != nil {
				err.Input = name
				return err
			}
			continue
		}

		dt, ok := dtypeFromONNX(input.ElemType())
		if !ok {
			return inputErrf(KindUnsupportedOperator, name, "input element type %d is not representable", input.ElemType())
		}
		dims := input.DeclaredDims()
		if override, ok := im.opts.InputDims[name]; ok {
			if len(override) != len(dims) {
				return inputErrf(KindInvalidGraph, name, "dimension override rank %d does not match declared rank %d", len(override), len(dims))
			}
			im.log.Info("overriding input dimensions",
				zap.String("input", name), zap.Int64s("declared", dims), zap.Int64s("override", override))
			dims = override
		} else if len(dims) > 0 {
			// Leave the leading batch dimension dynamic unless pinned.
			dims[0] = -1
		}

		im.log.Debug("adding network input",
			zap.String("name", name), zap.Stringer("dtype", dt), zap.Int64s("dims", dims))
		t, err := ctx.builder.AddInput(name, dt, dims)
		if err != nil {
			ie := asImportError(err)
			ie.Input = name
			return ie
		}
		if rerr := ctx.tensors.Register(name, TensorValue(t)); rerr != nil {
			rerr.Input = name
			return rerr
		}
	}
	return nil
}

// parseNodes visits nodes in scheduler order, resolving inputs, dispatching
// to converters and registering outputs. The first failure aborts the pass
// tagged with the node's index.
func (im *Importer) parseNodes(ctx *Context, graph *onnx.GraphProto, deserializing bool, rec *importRecord) *Error {
	order, err := scheduleNodes(graph)
	if err != nil {
		return err
	}

	for _, idx := range order {
		node := &graph.Nodes[idx]
		im.log.Debug("parsing node",
			zap.Int("index", idx), zap.String("name", node.Name), zap.String("op", node.OpType))

		inputs := make([]Value, len(node.Inputs))
		for i, name := range node.Inputs {
			if name == "" {
				continue // absent optional input
			}
			v, lerr := ctx.tensors.Lookup(name)
			if lerr != nil {
				return tagNode(lerr, idx, node.OpType)
			}
			inputs[i] = v
		}

		conv, exact := im.converters.Resolve(node.OpType)
		if !exact {
			im.log.Info("no converter registered for operator, attempting extension fallback",
				zap.String("op", node.OpType))
		}
		outputs, cerr := conv(ctx, node, inputs)
		if cerr != nil {
			return tagNode(asImportError(cerr), idx, node.OpType)
		}

		if deserializing {
			if derr := mergeDirectives(ctx, node); derr != nil {
				return tagNode(derr, idx, node.OpType)
			}
		}

		for i, name := range node.Outputs {
			if name == "" {
				continue
			}
			if i >= len(outputs) {
				return tagNode(errf(KindConverterFailure,
					"converter produced %d outputs but output %d (%q) is declared", len(outputs), i, name), idx, node.OpType)
			}
			if outputs[i].IsNull() {
				continue
			}
			if rerr := ctx.tensors.Register(name, outputs[i]); rerr != nil {
				return tagNode(rerr, idx, node.OpType)
			}
		}
		rec.converted[idx] = true
	}
	return nil
}

// tagNode attaches node context to an error that is not yet scoped.
func tagNode(e *Error, idx int, op string) *Error {
	if e.Node < 0 && e.Input == "" {
		e.Node = idx
		e.Op = op
	}
	return e
}

// mergeDirectives folds a marker-produced node's directive attributes into
// the annotation store.
func mergeDirectives(ctx *Context, node *onnx.NodeProto) *Error {
	attrs := onnx.NodeAttrs(node)
	if locs := attrs.Strings(attrOutputsLoc); len(locs) > 0 {
		if err := ctx.ann.SetLocations(node.Outputs, locs); err != nil {
			return err
		}
	}
	if mins := attrs.Floats(attrRangeMin); len(mins) > 0 {
		if err := ctx.ann.SetRangeMins(node.Outputs, mins); err != nil {
			return err
		}
	}
	if maxes := attrs.Floats(attrRangeMax); len(maxes) > 0 {
		if err := ctx.ann.SetRangeMaxes(node.Outputs, maxes); err != nil {
			return err
		}
	}
	if attrs.Has(attrPrecision) {
		dt, ok := dtypeFromONNX(int32(attrs.Int(attrPrecision, 0))) //nolint:gosec // G115: ONNX type enum fits in int32.
		if !ok {
			return errf(KindInvalidGraph, "precision directive on node %q is not representable", node.Name)
		}
		if err := ctx.ann.SetPrecisions([]string{node.Name}, []engine.DataType{dt}); err != nil {
			return err
		}
	}
	return nil
}

// finalizeOutputs resolves every declared graph output to a tensor, marks
// it on the builder and applies the declared element type.
func (im *Importer) finalizeOutputs(ctx *Context, graph *onnx.GraphProto) *Error {
	for i := range graph.Outputs {
		output := &graph.Outputs[i]
		v, lerr := ctx.tensors.Lookup(output.Name)
		if lerr != nil {
			return errf(KindUnboundOutput, "declared output %q was never produced", output.Name)
		}
		t, cerr := ctx.TensorOf(v, output.Name)
		if cerr != nil {
			return cerr
		}
		t.SetName(output.Name)

		if t.IsNetworkInput() {
			// The target representation does not allow one tensor to be
			// both a network input and output; insert a pass-through copy
			// and keep the declared name on the copy.
			t.SetName("__" + output.Name)
			layer, err := ctx.builder.AddLayer(engine.KindIdentity, output.Name+" (passthrough)",
				[]engine.Tensor{t}, []engine.DataType{t.Type()})
			if err != nil {
				return asImportError(err)
			}
			t = layer.Output(0)
			t.SetName(output.Name)
		}

		im.log.Debug("marking output", zap.String("name", output.Name))
		if err := ctx.builder.MarkOutput(t); err != nil {
			return asImportError(err)
		}

		if et := output.ElemType(); et != onnx.TensorProtoUndefined {
			dt, ok := dtypeFromONNX(et)
			if !ok {
				return errf(KindInvalidGraph, "output %q declares unrepresentable element type %d", output.Name, et)
			}
			// An int32-typed result must stay integral; silently widening
			// it to the default float type would corrupt index data.
			if t.Type() == engine.Int32 && dt != engine.Int32 {
				return errf(KindInvalidGraph, "output %q is int32 but declares %s", output.Name, dt)
			}
			t.SetType(dt)
		}
	}
	return nil
}
