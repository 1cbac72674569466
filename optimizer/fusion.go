package optimizer

import (
	"github.com/dbspgo/dbsp/circuit"
	"github.com/dbspgo/dbsp/operators"
)

// fusionPair is one (upstream, downstream) node pair slated for fusion.
type fusionPair struct {
	upstream, downstream circuit.NodeId
}

// FilterMapFusion replaces a Filter feeding exactly one Map consumer (and
// feeding nothing else) with a single FilterMap operator, per spec.md §4.7.
type FilterMapFusion struct{}

func (FilterMapFusion) Name() string { return "filter-then-map-fusion" }

func (FilterMapFusion) CanApply(def *circuit.CircuitDefinition) bool {
	return len(findPairs(def, circuit.KindFilter, circuit.KindMap)) > 0
}

func (FilterMapFusion) Apply(def *circuit.CircuitDefinition) *circuit.CircuitDefinition {
	return fuse(def, findPairs(def, circuit.KindFilter, circuit.KindMap), buildFilterMap)
}

// MapFilterFusion replaces a Map feeding exactly one Filter consumer with a
// single MapFilter operator, the symmetric counterpart of FilterMapFusion.
type MapFilterFusion struct{}

func (MapFilterFusion) Name() string { return "map-then-filter-fusion" }

func (MapFilterFusion) CanApply(def *circuit.CircuitDefinition) bool {
	return len(findPairs(def, circuit.KindMap, circuit.KindFilter)) > 0
}

func (MapFilterFusion) Apply(def *circuit.CircuitDefinition) *circuit.CircuitDefinition {
	return fuse(def, findPairs(def, circuit.KindMap, circuit.KindFilter), buildMapFilter)
}

// findPairs locates every non-overlapping (upstreamKind -> downstreamKind)
// chain where the upstream node's only consumer is the downstream node, and
// neither node is externally observable through a named input or output
// handle (fusing those away would change what a caller can observe).
func findPairs(def *circuit.CircuitDefinition, upstreamKind, downstreamKind circuit.OperatorKind) []fusionPair {
	referenced := externallyReferenced(def)
	var pairs []fusionPair
	used := make(map[circuit.NodeId]bool)
	for _, n := range def.InsertionOrder {
		a := def.Operators[n]
		if a.Kind != upstreamKind || used[n] || referenced[n] {
			continue
		}
		consumers := def.Dependents[n]
		if len(consumers) != 1 {
			continue
		}
		b := def.Operators[consumers[0]]
		if b.Kind != downstreamKind || used[b.Node] || referenced[b.Node] {
			continue
		}
		pairs = append(pairs, fusionPair{upstream: n, downstream: b.Node})
		used[n], used[b.Node] = true, true
	}
	return pairs
}

func externallyReferenced(def *circuit.CircuitDefinition) map[circuit.NodeId]bool {
	refs := make(map[circuit.NodeId]bool, len(def.Inputs)+len(def.Outputs))
	for _, h := range def.Inputs {
		refs[h.Node] = true
	}
	for _, h := range def.Outputs {
		refs[h.Node] = true
	}
	return refs
}

func buildFilterMap(a, b *circuit.OperatorRecord) (circuit.Operator, circuit.OperatorKind, bool) {
	f, ok := a.Op.(*operators.Filter)
	if !ok {
		return nil, "", false
	}
	m, ok := b.Op.(*operators.Map)
	if !ok {
		return nil, "", false
	}
	return &operators.FilterMap{In: f.In, Predicate: f.Predicate, Transform: m.Transform}, circuit.KindFilterMap, true
}

func buildMapFilter(a, b *circuit.OperatorRecord) (circuit.Operator, circuit.OperatorKind, bool) {
	m, ok := a.Op.(*operators.Map)
	if !ok {
		return nil, "", false
	}
	f, ok := b.Op.(*operators.Filter)
	if !ok {
		return nil, "", false
	}
	return &operators.MapFilter{In: m.In, Transform: m.Transform, Predicate: f.Predicate}, circuit.KindMapFilter, true
}

// fuse rewrites def by replacing every (upstream, downstream) pair with a
// single fused node at the downstream's id: the upstream's incoming edges
// are redirected to the downstream, the connecting edge is dropped, and the
// upstream node is removed. build constructs the fused circuit.Operator
// from the pair's two OperatorRecords; a pair is skipped (left unfused) if
// build reports the concrete operator types did not match what the kind
// tags promised.
func fuse(def *circuit.CircuitDefinition, pairs []fusionPair, build func(a, b *circuit.OperatorRecord) (circuit.Operator, circuit.OperatorKind, bool)) *circuit.CircuitDefinition {
	if len(pairs) == 0 {
		return def
	}

	removed := make(map[circuit.NodeId]bool, len(pairs))
	redirect := make(map[circuit.NodeId]circuit.NodeId, len(pairs))
	replaced := make(map[circuit.NodeId]*circuit.OperatorRecord, len(pairs))

	for _, p := range pairs {
		a := def.Operators[p.upstream]
		b := def.Operators[p.downstream]
		op, kind, ok := build(a, b)
		if !ok {
			continue
		}
		removed[p.upstream] = true
		redirect[p.upstream] = p.downstream
		replaced[p.downstream] = &circuit.OperatorRecord{
			Node:     b.Node,
			Name:     a.Name + "+" + b.Name,
			Kind:     kind,
			Location: b.Location,
			Op:       op,
			Inputs:   append([]circuit.NodeId(nil), a.Inputs...),
		}
	}
	if len(removed) == 0 {
		return def
	}

	ops := make(map[circuit.NodeId]*circuit.OperatorRecord, len(def.Operators))
	var insertion []circuit.NodeId
	for _, n := range def.InsertionOrder {
		if removed[n] {
			continue
		}
		if r, ok := replaced[n]; ok {
			ops[n] = r
		} else {
			ops[n] = def.Operators[n]
		}
		insertion = append(insertion, n)
	}

	var edges []circuit.Edge
	for _, e := range def.Edges {
		if target, ok := redirect[e.To]; ok {
			edges = append(edges, circuit.Edge{From: e.From, To: target, Kind: e.Kind})
			continue
		}
		if removed[e.From] {
			continue // the fused edge itself, or any other edge leaving a removed upstream
		}
		edges = append(edges, e)
	}

	dependents, dependencies := adjacency(edges)

	var execOrder []circuit.NodeId
	for _, n := range def.ExecOrder {
		if !removed[n] {
			execOrder = append(execOrder, n)
		}
	}

	return &circuit.CircuitDefinition{
		ID:             def.ID,
		Operators:      ops,
		InsertionOrder: insertion,
		Edges:          edges,
		Dependents:     dependents,
		Dependencies:   dependencies,
		ExecOrder:      execOrder,
		Inputs:         def.Inputs,
		Outputs:        def.Outputs,
		Clocks:         def.Clocks,
	}
}
