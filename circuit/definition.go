package circuit

import (
	"fmt"
	"strings"
)

// CircuitDefinition is the immutable snapshot produced by Builder.Build,
// per spec.md §3 "Circuit entities".
type CircuitDefinition struct {
	ID             CircuitId
	Operators      map[NodeId]*OperatorRecord
	InsertionOrder []NodeId
	Edges          []Edge
	Dependents     map[NodeId][]NodeId // From -> []To, data-flow edges only
	Dependencies   map[NodeId][]NodeId // To -> []From, the transpose
	ExecOrder      []NodeId            // topological order
	Inputs         map[string]StreamHandle
	Outputs        map[string]StreamHandle
	Clocks         []int64 // per-scope logical time counter
}

// Describe renders a plain-text summary of the circuit: nodes in
// execution order, their edges, and named handles. Spec.md §1 lists
// DOT/visualization export as an external collaborator out of this core's
// scope; Describe is the in-core substitute used by tests and CLI
// diagnostics that just need a readable dump, not a rendered graph.
func (c *CircuitDefinition) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "circuit %d (%d nodes)\n", c.ID, len(c.Operators))
	for _, n := range c.ExecOrder {
		op := c.Operators[n]
		fmt.Fprintf(&b, "  [%d] %s (%s)", n, op.Name, op.Kind)
		if len(op.Inputs) > 0 {
			fmt.Fprintf(&b, " <- %v", op.Inputs)
		}
		b.WriteByte('\n')
	}
	for _, e := range c.Edges {
		kind := "data"
		if e.Kind == EdgeFeedback {
			kind = "feedback"
		}
		fmt.Fprintf(&b, "  edge %d -> %d (%s)\n", e.From, e.To, kind)
	}
	for name, h := range c.Inputs {
		fmt.Fprintf(&b, "  input %q @ node %d\n", name, h.Node)
	}
	for name, h := range c.Outputs {
		fmt.Fprintf(&b, "  output %q @ node %d\n", name, h.Node)
	}
	return b.String()
}

// LiveOutputs reports whether node is referenced by any named output
// handle, used by the optimizer's dead-code elimination rule.
func (c *CircuitDefinition) LiveOutputs(node NodeId) bool {
	for _, h := range c.Outputs {
		if h.Node == node {
			return true
		}
	}
	return false
}
