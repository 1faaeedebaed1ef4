package importer

import (
	"testing"

	"github.com/graft-ml/graft/internal/onnx"
)

func TestScheduleNodesOutOfOrder(t *testing.T) {
	// Serialized order lists the consumer first.
	graph := &onnx.GraphProto{
		Nodes: []onnx.NodeProto{
			{OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"y"}},
			{OpType: "Identity", Inputs: []string{"x"}, Outputs: []string{"a"}},
		},
	}
	order, err := scheduleNodes(graph)
	if err != nil {
		t.Fatalf("scheduleNodes failed: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 0 {
		t.Errorf("order = %v, want [1 0]", order)
	}
}

func TestScheduleNodesOptionalInputs(t *testing.T) {
	graph := &onnx.GraphProto{
		Nodes: []onnx.NodeProto{
			{OpType: "Dropout", Inputs: []string{"x", ""}, Outputs: []string{"y", ""}},
		},
	}
	order, err := scheduleNodes(graph)
	if err != nil {
		t.Fatalf("scheduleNodes failed: %v", err)
	}
	if len(order) != 1 {
		t.Errorf("order = %v", order)
	}
}

func TestScheduleNodesSelfLoop(t *testing.T) {
	// A node consuming its own output has no valid position in any order.
	graph := &onnx.GraphProto{
		Nodes: []onnx.NodeProto{
			{OpType: "Add", Inputs: []string{"x", "y"}, Outputs: []string{"y"}},
		},
	}
	_, err := scheduleNodes(graph)
	if err == nil || err.Kind != KindCyclicGraph {
		t.Fatalf("expected cyclic graph, got %v", err)
	}
}

func TestScheduleNodesCycle(t *testing.T) {
	graph := &onnx.GraphProto{
		Nodes: []onnx.NodeProto{
			{OpType: "Add", Inputs: []string{"x", "b"}, Outputs: []string{"a"}},
			{OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"b"}},
		},
	}
	_, err := scheduleNodes(graph)
	if err == nil || err.Kind != KindCyclicGraph {
		t.Fatalf("expected cyclic graph, got %v", err)
	}
}
