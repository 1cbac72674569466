package optimizer

import "github.com/dbspgo/dbsp/circuit"

// DeadCodeElimination removes nodes with no outgoing edges that are not
// referenced by any output handle, per spec.md §4.7. The open question of
// how to treat a node that is simultaneously an operator and an output
// resolves per spec.md §9: a node is live if it is a listed output or has
// any outgoing edge, evaluated before each removal round so that removing
// one dead node can expose a newly-dead upstream node, down to a fixed
// point.
type DeadCodeElimination struct{}

func (DeadCodeElimination) Name() string { return "dead-code-elimination" }

func (DeadCodeElimination) CanApply(def *circuit.CircuitDefinition) bool {
	return len(findDead(def)) > 0
}

func (DeadCodeElimination) Apply(def *circuit.CircuitDefinition) *circuit.CircuitDefinition {
	for {
		dead := findDead(def)
		if len(dead) == 0 {
			return def
		}
		def = removeDead(def, dead)
	}
}

func findDead(def *circuit.CircuitDefinition) map[circuit.NodeId]bool {
	hasOutgoing := make(map[circuit.NodeId]bool, len(def.Operators))
	for _, e := range def.Edges {
		hasOutgoing[e.From] = true
	}
	dead := make(map[circuit.NodeId]bool)
	for _, n := range def.InsertionOrder {
		if hasOutgoing[n] || def.LiveOutputs(n) {
			continue
		}
		dead[n] = true
	}
	return dead
}

func removeDead(def *circuit.CircuitDefinition, dead map[circuit.NodeId]bool) *circuit.CircuitDefinition {
	ops := make(map[circuit.NodeId]*circuit.OperatorRecord, len(def.Operators))
	var insertion []circuit.NodeId
	for _, n := range def.InsertionOrder {
		if dead[n] {
			continue
		}
		ops[n] = def.Operators[n]
		insertion = append(insertion, n)
	}

	var edges []circuit.Edge
	for _, e := range def.Edges {
		if dead[e.From] || dead[e.To] {
			continue
		}
		edges = append(edges, e)
	}

	dependents, dependencies := adjacency(edges)

	var execOrder []circuit.NodeId
	for _, n := range def.ExecOrder {
		if !dead[n] {
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

func adjacency(edges []circuit.Edge) (map[circuit.NodeId][]circuit.NodeId, map[circuit.NodeId][]circuit.NodeId) {
	dependents := make(map[circuit.NodeId][]circuit.NodeId)
	dependencies := make(map[circuit.NodeId][]circuit.NodeId)
	for _, e := range edges {
		if e.Kind != circuit.EdgeData {
			continue
		}
		dependents[e.From] = append(dependents[e.From], e.To)
		dependencies[e.To] = append(dependencies[e.To], e.From)
	}
	return dependents, dependencies
}
