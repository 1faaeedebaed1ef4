package importer

import (
	"go.uber.org/zap"

	"github.com/graft-ml/graft/engine"
)

// fixupShapeOutputs runs after a completed import. Layers producing
// shape-descriptor outputs must not carry explicit precision or type
// overrides: the descriptor is forced to the canonical int32
// representation (bool stays bool). Layers whose kind cannot legally
// produce shape outputs are recorded; coverage analysis excludes their
// consumers.
func fixupShapeOutputs(builder engine.Builder, log *zap.Logger, rec *importRecord) {
	for i := 0; i < builder.NumLayers(); i++ {
		layer := builder.Layer(i)
		if layer.NumOutputs() == 0 || !layer.Output(0).IsShapeTensor() {
			continue
		}
		layer.ResetPrecision()
		layer.ResetOutputType(0)

		t := layer.Output(0)
		shapeType := engine.Int32
		if t.Type() == engine.Bool {
			// Boolean shape tensors were never cast; their type is already
			// correct.
			shapeType = engine.Bool
		}
		layer.SetPrecision(shapeType)
		layer.SetOutputType(0, shapeType)
		if t.Type() != shapeType {
			t.SetType(shapeType)
		}

		if !engine.SupportsShapeOutput(layer.Kind()) {
			name := t.Name()
			rec.illegalShapeOutputs[name] = true
			log.Error("layer kind cannot legally produce a shape-typed output",
				zap.String("tensor", name), zap.Stringer("kind", layer.Kind()))
		}
	}
}
