package importer

import (
	"testing"

	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/engine/mem"
)

func floatWeights(dims []int64, data []byte) *Weights {
	return &Weights{DType: engine.Float, Dims: dims, Data: data}
}

func TestRegistryReserveAndFill(t *testing.T) {
	r := newTensorRegistry()
	r.Reserve("y")

	if _, err := r.Lookup("y"); err == nil {
		t.Fatal("reserved name should not resolve")
	} else if err.Kind != KindUnresolvedReference {
		t.Fatalf("unexpected kind: %v", err.Kind)
	}
	if r.Bound("y") {
		t.Error("reserved name reported as bound")
	}

	w := floatWeights([]int64{1}, []byte{1, 2, 3, 4})
	if err := r.Register("y", WeightsValue(w)); err != nil {
		t.Fatalf("filling a reservation failed: %v", err)
	}
	v, err := r.Lookup("y")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !v.IsWeights() || v.Weights() != w {
		t.Error("bound value does not round-trip")
	}
}

func TestRegistryRebind(t *testing.T) {
	r := newTensorRegistry()
	w := floatWeights([]int64{2}, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	if err := r.Register("w", WeightsValue(w)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Same content is a no-op.
	same := floatWeights([]int64{2}, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	if err := r.Register("w", WeightsValue(same)); err != nil {
		t.Errorf("idempotent rebind failed: %v", err)
	}

	other := floatWeights([]int64{2}, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	err := r.Register("w", WeightsValue(other))
	if err == nil {
		t.Fatal("conflicting rebind should fail")
	}
	if err.Kind != KindConflictingBinding {
		t.Errorf("unexpected kind: %v", err.Kind)
	}
}

func TestRegistryRenamesTensor(t *testing.T) {
	b := mem.NewBuilder()
	in, _ := b.AddInput("raw", engine.Float, nil)
	layer, _ := b.AddLayer(engine.KindIdentity, "id_0",
		[]engine.Tensor{in}, []engine.DataType{engine.Float})

	r := newTensorRegistry()
	out := layer.Output(0)
	if err := r.Register("h", TensorValue(out)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if out.Name() != "h" {
		t.Errorf("tensor name = %q, want %q", out.Name(), "h")
	}
}

func TestRegistryUnknownName(t *testing.T) {
	r := newTensorRegistry()
	_, err := r.Lookup("nothing")
	if err == nil || err.Kind != KindUnresolvedReference {
		t.Fatalf("expected unresolved reference, got %v", err)
	}
}
