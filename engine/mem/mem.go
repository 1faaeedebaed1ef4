// Copyright 2026 Graft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mem provides an in-memory reference implementation of the
// engine.Builder interface.
//
// The builder records the constructed graph structure without executing
// anything. It backs the importer's tests, the Support Analyzer's trial
// imports and the graft CLI.
package mem

import (
	"fmt"

	"github.com/graft-ml/graft/engine"
)

// Tensor is an in-memory tensor record.
type Tensor struct {
	name     string
	dtype    engine.DataType
	dims     []int64
	shape    bool
	isInput  bool
	location engine.Location
	rangeMin float32
	rangeMax float32
	hasRange bool
}

// Name returns the tensor name.
func (t *Tensor) Name() string { return t.name }

// SetName renames the tensor.
func (t *Tensor) SetName(name string) { t.name = name }

// Type returns the element type.
func (t *Tensor) Type() engine.DataType { return t.dtype }

// SetType overrides the element type.
func (t *Tensor) SetType(dt engine.DataType) { t.dtype = dt }

// Dims returns the dimensions, -1 for dynamic ones.
func (t *Tensor) Dims() []int64 { return t.dims }

// IsShapeTensor reports whether the tensor is a shape descriptor.
func (t *Tensor) IsShapeTensor() bool { return t.shape }

// IsNetworkInput reports whether the tensor is a network input handle.
func (t *Tensor) IsNetworkInput() bool { return t.isInput }

// Location returns the tensor placement.
func (t *Tensor) Location() engine.Location { return t.location }

// SetLocation places the tensor.
func (t *Tensor) SetLocation(loc engine.Location) { t.location = loc }

// DynamicRange returns the calibration range if one was set.
func (t *Tensor) DynamicRange() (min, max float32, ok bool) {
	return t.rangeMin, t.rangeMax, t.hasRange
}

// SetDynamicRange sets the calibration range.
func (t *Tensor) SetDynamicRange(min, max float32) {
	t.rangeMin, t.rangeMax, t.hasRange = min, max, true
}

// MarkShapeTensor flags the tensor as a shape descriptor.
func (t *Tensor) MarkShapeTensor() { t.shape = true }

// Layer is an in-memory layer record.
type Layer struct {
	name         string
	kind         engine.LayerKind
	inputs       []engine.Tensor
	outputs      []*Tensor
	precision    engine.DataType
	hasPrecision bool
	outTypeSet   []bool
	data         []byte
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Kind returns the layer kind.
func (l *Layer) Kind() engine.LayerKind { return l.kind }

// NumInputs returns the input count.
func (l *Layer) NumInputs() int { return len(l.inputs) }

// Input returns input i.
func (l *Layer) Input(i int) engine.Tensor { return l.inputs[i] }

// NumOutputs returns the output count.
func (l *Layer) NumOutputs() int { return len(l.outputs) }

// Output returns output i.
func (l *Layer) Output(i int) engine.Tensor { return l.outputs[i] }

// Precision returns the compute precision override, if set.
func (l *Layer) Precision() (engine.DataType, bool) { return l.precision, l.hasPrecision }

// SetPrecision overrides the compute precision.
func (l *Layer) SetPrecision(dt engine.DataType) { l.precision, l.hasPrecision = dt, true }

// ResetPrecision clears the precision override.
func (l *Layer) ResetPrecision() { l.hasPrecision = false }

// SetOutputType overrides the element type of output i.
func (l *Layer) SetOutputType(i int, dt engine.DataType) {
	l.outputs[i].dtype = dt
	l.outTypeSet[i] = true
}

// ResetOutputType clears the output type override of output i.
func (l *Layer) ResetOutputType(i int) { l.outTypeSet[i] = false }

// Data returns the constant payload for constant layers, nil otherwise.
func (l *Layer) Data() []byte { return l.data }

// Builder is an in-memory engine.Builder.
type Builder struct {
	inputs  []*Tensor
	outputs []*Tensor
	layers  []*Layer

	// Plugins maps operator types to the number of outputs their extension
	// layer produces. Empty by default: the fallback path fails unless a
	// test or embedding runtime registers extensions.
	plugins map[string]int
}

// NewBuilder creates an empty in-memory builder.
func NewBuilder() *Builder {
	return &Builder{plugins: make(map[string]int)}
}

// RegisterPlugin registers an extension for op producing numOutputs
// tensors. It makes the fallback converter succeed for that operator.
func (b *Builder) RegisterPlugin(op string, numOutputs int) {
	b.plugins[op] = numOutputs
}

// AddInput creates a network input handle.
func (b *Builder) AddInput(name string, dt engine.DataType, dims []int64) (engine.Tensor, error) {
	if _, ok := b.TensorByName(name); ok {
		return nil, fmt.Errorf("mem: duplicate tensor name %q", name)
	}
	t := &Tensor{name: name, dtype: dt, dims: dims, isInput: true}
	b.inputs = append(b.inputs, t)
	return t, nil
}

// AddLayer adds a layer with one output tensor per entry of outputTypes.
// Shape-tensor roles propagate: a Shape layer's outputs are shape tensors,
// and kinds that transform shapes keep the flag when any input carries it.
func (b *Builder) AddLayer(kind engine.LayerKind, name string, inputs []engine.Tensor, outputTypes []engine.DataType) (engine.Layer, error) {
	layer := &Layer{
		name:       name,
		kind:       kind,
		inputs:     inputs,
		outTypeSet: make([]bool, len(outputTypes)),
	}
	shape := kind == engine.KindShape
	if !shape && propagatesShape(kind) {
		for _, in := range inputs {
			if in != nil && in.IsShapeTensor() {
				shape = true
				break
			}
		}
	}
	for i, dt := range outputTypes {
		out := &Tensor{
			name:  fmt.Sprintf("%s:%d", name, i),
			dtype: dt,
			shape: shape,
		}
		layer.outputs = append(layer.outputs, out)
	}
	b.layers = append(b.layers, layer)
	return layer, nil
}

// propagatesShape lists kinds whose outputs stay in the shape domain when
// fed shape tensors.
func propagatesShape(kind engine.LayerKind) bool {
	switch kind {
	case engine.KindIdentity, engine.KindElementWise, engine.KindShuffle,
		engine.KindConcat, engine.KindGather, engine.KindSlice,
		engine.KindCast, engine.KindReduce:
		return true
	default:
		return false
	}
}

// AddConstant adds a constant layer carrying weight data.
func (b *Builder) AddConstant(name string, dt engine.DataType, dims []int64, data []byte) (engine.Layer, error) {
	layer, err := b.AddLayer(engine.KindConstant, name, nil, []engine.DataType{dt})
	if err != nil {
		return nil, err
	}
	l := layer.(*Layer)
	l.data = data
	l.outputs[0].dims = dims
	return l, nil
}

// AddPlugin implements engine.PluginBuilder over the registered extension
// table.
func (b *Builder) AddPlugin(name, op string, inputs []engine.Tensor, numOutputs int, _ map[string]string) (engine.Layer, error) {
	want, ok := b.plugins[op]
	if !ok {
		return nil, fmt.Errorf("mem: no extension registered for op %q", op)
	}
	if numOutputs > 0 && want != numOutputs {
		return nil, fmt.Errorf("mem: extension for op %q produces %d outputs, want %d", op, want, numOutputs)
	}
	types := make([]engine.DataType, want)
	return b.AddLayer(engine.KindPlugin, name, inputs, types)
}

// MarkOutput marks a tensor as a network output.
func (b *Builder) MarkOutput(t engine.Tensor) error {
	mt, ok := t.(*Tensor)
	if !ok {
		return fmt.Errorf("mem: foreign tensor %q", t.Name())
	}
	b.outputs = append(b.outputs, mt)
	return nil
}

// NumInputs returns the network input count.
func (b *Builder) NumInputs() int { return len(b.inputs) }

// Input returns network input i.
func (b *Builder) Input(i int) engine.Tensor { return b.inputs[i] }

// NumOutputs returns the network output count.
func (b *Builder) NumOutputs() int { return len(b.outputs) }

// Output returns network output i.
func (b *Builder) Output(i int) engine.Tensor { return b.outputs[i] }

// NumLayers returns the layer count.
func (b *Builder) NumLayers() int { return len(b.layers) }

// Layer returns layer i.
func (b *Builder) Layer(i int) engine.Layer { return b.layers[i] }

// TensorByName finds a tensor by its current name. Renames via SetName are
// visible immediately.
func (b *Builder) TensorByName(name string) (engine.Tensor, bool) {
	for _, t := range b.inputs {
		if t.name == name {
			return t, true
		}
	}
	for _, l := range b.layers {
		for _, t := range l.outputs {
			if t.name == name {
				return t, true
			}
		}
	}
	return nil, false
}

// LayerByName finds a layer by name.
func (b *Builder) LayerByName(name string) (engine.Layer, bool) {
	for _, l := range b.layers {
		if l.name == name {
			return l, true
		}
	}
	return nil, false
}
