package importer

import (
	"github.com/graft-ml/graft/internal/onnx"
	"github.com/graft-ml/graft/internal/toposort"
)

// scheduleNodes produces the node visitation order: a permutation of node
// indices in which every node follows the producers of all its non-empty
// inputs. Initializer names and graph-level inputs have no producer node
// and are considered available up front.
func scheduleNodes(graph *onnx.GraphProto) ([]int, *Error) {
	producers := make(map[string]int)
	for i := range graph.Nodes {
		for _, out := range graph.Nodes[i].Outputs {
			if out != "" {
				producers[out] = i
			}
		}
	}

	deps := func(i int) []int {
		var d []int
		for _, in := range graph.Nodes[i].Inputs {
			if in == "" {
				continue
			}
			if p, ok := producers[in]; ok {
				d = append(d, p)
			}
		}
		return d
	}

	order, err := toposort.Sort(len(graph.Nodes), deps)
	if err != nil {
		return nil, errf(KindCyclicGraph, "no dependency-respecting node order exists")
	}
	return order, nil
}
