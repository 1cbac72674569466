// Copyright 2024 The DBSP-Go Authors
// This file is part of dbsp-go.
//
// dbsp-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// dbsp-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with dbsp-go. If not, see <http://www.gnu.org/licenses/>.

// Package scheduler computes the dependency-ordered execution sequence
// for a circuit's operators, per spec.md §4.6: Kahn's algorithm with
// deterministic insertion-order tie-breaking.
package scheduler

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCycle is returned when the dependency graph is not a DAG.
var ErrCycle = errors.New("scheduler: cycle detected")

// TopoSort orders nodes topologically given dependencies[node] = the
// nodes it depends on (must run before it). insertionOrder both seeds the
// initial node set and supplies the tie-break rank: among nodes
// simultaneously ready (in-degree zero), the earliest-inserted one is
// always emitted first, matching spec.md §4.6 "ties break by insertion
// order".
func TopoSort[N comparable](insertionOrder []N, dependencies map[N][]N) ([]N, error) {
	rank := make(map[N]int, len(insertionOrder))
	for i, n := range insertionOrder {
		rank[n] = i
	}
	indegree := make(map[N]int, len(insertionOrder))
	for _, n := range insertionOrder {
		indegree[n] = len(dependencies[n])
	}
	dependents := make(map[N][]N)
	for to, froms := range dependencies {
		for _, from := range froms {
			dependents[from] = append(dependents[from], to)
		}
	}

	var ready []N
	insertSorted := func(n N) {
		i := 0
		for i < len(ready) && rank[ready[i]] < rank[n] {
			i++
		}
		var zero N
		ready = append(ready, zero)
		copy(ready[i+1:], ready[i:len(ready)-1])
		ready[i] = n
	}
	for _, n := range insertionOrder {
		if indegree[n] == 0 {
			insertSorted(n)
		}
	}

	out := make([]N, 0, len(insertionOrder))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, n)
		for _, succ := range dependents[n] {
			indegree[succ]--
			if indegree[succ] == 0 {
				insertSorted(succ)
			}
		}
	}

	if len(out) != len(insertionOrder) {
		return nil, errors.Wrap(ErrCycle, fmt.Sprintf("scheduled %d of %d nodes", len(out), len(insertionOrder)))
	}
	return out, nil
}
