package importer

import (
	"github.com/graft-ml/graft/engine"
	"github.com/graft-ml/graft/engine/mem"
	"github.com/graft-ml/graft/internal/onnx"
)

// Segment is a contiguous run of supported nodes in topological order.
type Segment struct {
	// Nodes holds source-graph node indices in visitation order.
	Nodes []int
	// Supported is true only when the segment covers the whole graph.
	// Partial segments stay false: their viability is unknown until the
	// runtime attempts them.
	Supported bool
}

// Report is the coverage result for one model: the maximal partition of
// convertible nodes into contiguous segments.
type Report struct {
	Segments []Segment
	// Supported is true when every node landed in a single segment.
	Supported bool
}

// Analyze determines how much of the model the converter registry can
// realize, without rejecting the whole model on the first failure.
//
// The analysis runs one isolated trial import to locate the first failure,
// then re-walks the scheduler order converting each failure into an
// exclusion. It never touches the importer's real builder; annotations and
// bindings from the trial are discarded.
func (im *Importer) Analyze(model *onnx.ModelProto) (*Report, error) {
	if model.Graph == nil {
		return nil, errf(KindInvalidGraph, "model has no graph")
	}
	graph := model.Graph

	newTrial := im.opts.TrialBuilder
	if newTrial == nil {
		newTrial = func() engine.Builder { return mem.NewBuilder() }
	}
	trialBuilder := newTrial()

	rec := newImportRecord()
	trialErr := im.importModel(trialBuilder, model, rec)

	errNode := -1
	failingInput := ""
	if trialErr != nil {
		switch {
		case trialErr.Node >= 0:
			errNode = trialErr.Node
		case trialErr.Input != "":
			failingInput = trialErr.Input
		case trialErr.Kind == KindCyclicGraph || trialErr.Kind == KindDeserialize:
			// Without a node order there is nothing to partition.
			return nil, trialErr
		}
	}

	order, serr := scheduleNodes(graph)
	if serr != nil {
		return nil, serr
	}

	report := &Report{Supported: true}
	// Outputs of excluded nodes are unavailable to the runtime; their
	// consumers are excluded transitively.
	unavailable := make(map[string]bool)
	open := false
	for _, idx := range order {
		node := &graph.Nodes[idx]
		if im.nodeSupported(trialBuilder, rec, node, idx, errNode, failingInput, unavailable) {
			if !open {
				report.Segments = append(report.Segments, Segment{})
				open = true
			}
			seg := &report.Segments[len(report.Segments)-1]
			seg.Nodes = append(seg.Nodes, idx)
			continue
		}
		for _, out := range node.Outputs {
			if out != "" {
				unavailable[out] = true
			}
		}
		open = false
		report.Supported = false
	}

	// A single segment with no exclusions covers the whole graph.
	if report.Supported && len(report.Segments) == 1 {
		report.Segments[0].Supported = true
	}
	return report, nil
}

// nodeSupported applies the per-node inclusion rules:
//  1. a converter resolves for the operator type, or the extension
//     fallback demonstrably converted the node during the trial,
//  2. the node is not the one the trial failed on,
//  3. none of its inputs is the failing graph input (directly or through a
//     recorded alias),
//  4. none of its inputs is produced by an already excluded node,
//  5. it does not consume a disallowed shape-typed network input,
//  6. it does not consume or produce a tensor flagged as an illegal
//     shape-typed output.
func (im *Importer) nodeSupported(trial engine.Builder, rec *importRecord, node *onnx.NodeProto, idx, errNode int, failingInput string, unavailable map[string]bool) bool {
	if idx == errNode {
		return false
	}
	if !im.converters.Supports(node.OpType) && !rec.converted[idx] {
		return false
	}
	if failingInput != "" {
		aliased := rec.aliases[failingInput]
		for _, in := range node.Inputs {
			if in == failingInput || (aliased != "" && in == aliased) {
				return false
			}
		}
	}
	for _, in := range node.Inputs {
		if in != "" && unavailable[in] {
			return false
		}
	}
	if consumesDisallowedShapeInput(trial, node) {
		return false
	}
	for _, in := range node.Inputs {
		if in != "" && rec.illegalShapeOutputs[in] {
			return false
		}
	}
	for _, out := range node.Outputs {
		if out != "" && rec.illegalShapeOutputs[out] {
			return false
		}
	}
	return true
}

// consumesDisallowedShapeInput reports whether the node reads a shape-typed
// network input it cannot legally consume: float-typed shape descriptors
// are never legal, and loop-carried operators cannot take shape tensors at
// all.
func consumesDisallowedShapeInput(trial engine.Builder, node *onnx.NodeProto) bool {
	for i := 0; i < trial.NumInputs(); i++ {
		in := trial.Input(i)
		if !in.IsShapeTensor() {
			continue
		}
		if in.Type() != engine.Float && node.OpType != "Loop" && node.OpType != "Scan" {
			continue
		}
		name := in.Name()
		for _, nin := range node.Inputs {
			if nin == name {
				return true
			}
		}
	}
	return false
}
