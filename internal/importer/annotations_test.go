package importer

import (
	"math"
	"testing"

	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/engine/mem"
)

func TestAnnotationsConflict(t *testing.T) {
	a := newAnnotations()
	if err := a.SetRange("x", 0, 1); err != nil {
		t.Fatalf("SetRange failed: %v", err)
	}
	// Same value is a no-op.
	if err := a.SetRange("x", 0, 1); err != nil {
		t.Errorf("re-asserting the same range failed: %v", err)
	}
	err := a.SetRange("x", 0, 2)
	if err == nil {
		t.Fatal("conflicting range should fail")
	}
	if err.Kind != KindConflictingAnnotation {
		t.Errorf("unexpected kind: %v", err.Kind)
	}
}

func TestAnnotationsTooManyValues(t *testing.T) {
	a := newAnnotations()
	err := a.SetLocations([]string{"a"}, []string{"host", "device"})
	if err == nil || err.Kind != KindInvalidGraph {
		t.Fatalf("expected invalid graph, got %v", err)
	}
}

func TestAnnotationsApply(t *testing.T) {
	b := mem.NewBuilder()
	in, _ := b.AddInput("x", engine.Float, nil)
	layer, _ := b.AddLayer(engine.KindActivation, "act",
		[]engine.Tensor{in}, []engine.DataType{engine.Float})

	a := newAnnotations()
	if err := a.SetLocations([]string{"x"}, []string{"host"}); err != nil {
		t.Fatalf("SetLocations failed: %v", err)
	}
	if err := a.SetRange("x", -1, 1); err != nil {
		t.Fatalf("SetRange failed: %v", err)
	}
	if err := a.SetPrecisions([]string{"act"}, []engine.DataType{engine.Half}); err != nil {
		t.Fatalf("SetPrecisions failed: %v", err)
	}

	if err := a.apply(b); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if in.Location() != engine.Host {
		t.Error("placement not applied")
	}
	if min, max, ok := in.DynamicRange(); !ok || min != -1 || max != 1 {
		t.Errorf("range not applied: %v %v %v", min, max, ok)
	}
	if dt, ok := layer.Precision(); !ok || dt != engine.Half {
		t.Error("precision not applied")
	}
}

func TestAnnotationsApplyMinWithoutMax(t *testing.T) {
	a := newAnnotations()
	if err := a.SetRangeMins([]string{"x"}, []float32{0}); err != nil {
		t.Fatalf("SetRangeMins failed: %v", err)
	}
	err := a.apply(mem.NewBuilder())
	if err == nil || err.Kind != KindInvalidGraph {
		t.Fatalf("expected invalid graph, got %v", err)
	}
}

func TestAnnotationsApplyNaNRangeSkipped(t *testing.T) {
	a := newAnnotations()
	// A NaN minimum marks an unset range; it must not be applied, even to a
	// tensor the builder has never heard of.
	if err := a.SetRange("ghost", float32(math.NaN()), 1); err != nil {
		t.Fatalf("SetRange failed: %v", err)
	}
	if err := a.apply(mem.NewBuilder()); err != nil {
		t.Errorf("apply failed: %v", err)
	}
}

func TestAnnotationsApplyUnknownTensor(t *testing.T) {
	a := newAnnotations()
	if err := a.SetLocations([]string{"ghost"}, []string{"device"}); err != nil {
		t.Fatalf("SetLocations failed: %v", err)
	}
	err := a.apply(mem.NewBuilder())
	if err == nil || err.Kind != KindInvalidGraph {
		t.Fatalf("expected invalid graph, got %v", err)
	}
}
