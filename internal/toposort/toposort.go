// Package toposort provides a generic dependency-ordering primitive.
package toposort

import "errors"

// ErrCycle is returned when no dependency-respecting order exists.
var ErrCycle = errors.New("toposort: dependency cycle detected")

// Sort returns a permutation of [0, n) in which every item appears after
// all items it depends on. deps(i) returns the indices item i depends on;
// duplicate edges are tolerated, but an item depending on itself is a
// cycle. The order is deterministic for a given input.
func Sort(n int, deps func(int) []int) ([]int, error) {
	indegree := make([]int, n)
	dependents := make([][]int, n)
	for i := 0; i < n; i++ {
		seen := make(map[int]bool)
		for _, dep := range deps(i) {
			if dep == i {
				return nil, ErrCycle
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			indegree[i]++
			dependents[dep] = append(dependents[dep], i)
		}
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != n {
		return nil, ErrCycle
	}
	return order, nil
}
