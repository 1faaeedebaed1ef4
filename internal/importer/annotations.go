package importer

import (
	"math"

	"github.com/graft-ml/graft/engine"
)

// Annotations is the per-import store of side-channel metadata: tensor
// placement, calibration ranges and per-node precision overrides. Entries
// are keyed by tensor or node name; re-asserting an entry must match the
// recorded value.
type Annotations struct {
	locations  map[string]engine.Location
	rangeMins  map[string]float32
	rangeMaxes map[string]float32
	precisions map[string]engine.DataType
}

// newAnnotations creates an empty store.
func newAnnotations() *Annotations {
	return &Annotations{
		locations:  make(map[string]engine.Location),
		rangeMins:  make(map[string]float32),
		rangeMaxes: make(map[string]float32),
		precisions: make(map[string]engine.DataType),
	}
}

// merge records vals[i] under names[i], failing on a mismatch with a prior
// entry. There may be fewer values than names; extra names are untouched.
func merge[T comparable](m map[string]T, names []string, vals []T) *Error {
	if len(names) < len(vals) {
		return errf(KindInvalidGraph, "%d annotation values for %d names", len(vals), len(names))
	}
	for i, val := range vals {
		name := names[i]
		if prev, ok := m[name]; ok {
			if prev != val {
				return errf(KindConflictingAnnotation, "annotation for %q re-asserted with a different value", name)
			}
			continue
		}
		m[name] = val
	}
	return nil
}

// SetLocations records tensor placements parsed from directive strings
// ("device" or "host").
func (a *Annotations) SetLocations(names, locations []string) *Error {
	locs := make([]engine.Location, len(locations))
	for i, loc := range locations {
		if loc == "host" {
			locs[i] = engine.Host
		} else {
			locs[i] = engine.Device
		}
	}
	return merge(a.locations, names, locs)
}

// SetRangeMins records calibration range minimums.
func (a *Annotations) SetRangeMins(names []string, mins []float32) *Error {
	return merge(a.rangeMins, names, mins)
}

// SetRangeMaxes records calibration range maximums.
func (a *Annotations) SetRangeMaxes(names []string, maxes []float32) *Error {
	return merge(a.rangeMaxes, names, maxes)
}

// SetRange records a full calibration range for one tensor.
func (a *Annotations) SetRange(name string, min, max float32) *Error {
	if err := merge(a.rangeMins, []string{name}, []float32{min}); err != nil {
		return err
	}
	return merge(a.rangeMaxes, []string{name}, []float32{max})
}

// SetPrecisions records per-node precision overrides.
func (a *Annotations) SetPrecisions(names []string, precisions []engine.DataType) *Error {
	return merge(a.precisions, names, precisions)
}

// apply transfers every annotation onto the built graph. Each entry
// requires the named element to exist in the target graph.
func (a *Annotations) apply(builder engine.Builder) *Error {
	for name, loc := range a.locations {
		t, ok := builder.TensorByName(name)
		if !ok {
			return errf(KindInvalidGraph, "placement refers to unknown tensor %q", name)
		}
		t.SetLocation(loc)
	}
	for name, min := range a.rangeMins {
		max, ok := a.rangeMaxes[name]
		if !ok {
			return errf(KindInvalidGraph, "calibration range for %q has a minimum but no maximum", name)
		}
		if math.IsNaN(float64(min)) {
			continue
		}
		t, ok := builder.TensorByName(name)
		if !ok {
			return errf(KindInvalidGraph, "calibration range refers to unknown tensor %q", name)
		}
		t.SetDynamicRange(min, max)
	}
	for name, precision := range a.precisions {
		l, ok := builder.LayerByName(name)
		if !ok {
			return errf(KindInvalidGraph, "precision override refers to unknown layer %q", name)
		}
		l.SetPrecision(precision)
	}
	return nil
}
