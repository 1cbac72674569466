package circuit

import (
	"github.com/pkg/errors"

	"github.com/dbspgo/dbsp/scheduler"
)

// Builder accumulates operators and edges, generating monotonically
// increasing NodeIds, and freezes into a CircuitDefinition on Build.
type Builder struct {
	id        CircuitId
	nextNode  NodeId
	operators map[NodeId]*OperatorRecord
	order     []NodeId // insertion order, for deterministic iteration
	edges     []Edge
	inputs    map[string]StreamHandle
	outputs   map[string]StreamHandle
}

// NewBuilder constructs an empty builder for circuit id id.
func NewBuilder(id CircuitId) *Builder {
	return &Builder{
		id:        id,
		operators: make(map[NodeId]*OperatorRecord),
		inputs:    make(map[string]StreamHandle),
		outputs:   make(map[string]StreamHandle),
	}
}

// AddOperator registers op under name/kind with the given input node ids,
// returning the newly minted NodeId.
func (b *Builder) AddOperator(name string, kind OperatorKind, op Operator, inputs ...NodeId) (NodeId, error) {
	for _, in := range inputs {
		if _, ok := b.operators[in]; !ok {
			return 0, errors.Wrapf(ErrUnknownNode, "operator %q input %d", name, in)
		}
	}
	node := b.nextNode
	b.nextNode++
	b.operators[node] = &OperatorRecord{Node: node, Name: name, Kind: kind, Op: op, Inputs: append([]NodeId(nil), inputs...)}
	b.order = append(b.order, node)
	for _, in := range inputs {
		b.edges = append(b.edges, Edge{From: in, To: node, Kind: EdgeData})
	}
	return node, nil
}

// AddFeedbackEdge connects from's output to to's input as a feedback edge
// (spec.md §9): the scheduler ignores this edge for cycle detection.
func (b *Builder) AddFeedbackEdge(from, to NodeId) error {
	if _, ok := b.operators[from]; !ok {
		return errors.Wrapf(ErrUnknownNode, "feedback edge source %d", from)
	}
	if _, ok := b.operators[to]; !ok {
		return errors.Wrapf(ErrUnknownNode, "feedback edge target %d", to)
	}
	b.edges = append(b.edges, Edge{From: from, To: to, Kind: EdgeFeedback})
	return nil
}

// AddInput registers a named input handle carried by node.
func (b *Builder) AddInput(name string, node NodeId) error {
	if _, ok := b.operators[node]; !ok {
		return errors.Wrapf(ErrUnknownNode, "input %q node %d", name, node)
	}
	b.inputs[name] = StreamHandle{Node: node}
	return nil
}

// AddOutput registers a named output handle sourced from node.
func (b *Builder) AddOutput(name string, source NodeId) error {
	if _, ok := b.operators[source]; !ok {
		return errors.Wrapf(ErrUnknownNode, "output %q node %d", name, source)
	}
	b.outputs[name] = StreamHandle{Node: source}
	return nil
}

// Build freezes the builder into an immutable CircuitDefinition,
// computing dependency adjacency (the transpose of connection edges) and
// checking for duplicate node ids (impossible by construction here, kept
// as a defensive invariant check) and dangling edges.
func (b *Builder) Build() (*CircuitDefinition, error) {
	seen := make(map[NodeId]bool, len(b.order))
	for _, n := range b.order {
		if seen[n] {
			return nil, errors.Wrapf(ErrDuplicateNode, "node %d", n)
		}
		seen[n] = true
	}
	for _, e := range b.edges {
		if _, ok := b.operators[e.From]; !ok {
			return nil, errors.Wrapf(ErrUnknownNode, "edge from %d", e.From)
		}
		if _, ok := b.operators[e.To]; !ok {
			return nil, errors.Wrapf(ErrUnknownNode, "edge to %d", e.To)
		}
	}

	dependents := make(map[NodeId][]NodeId) // From -> []To (data-flow only)
	dependencies := make(map[NodeId][]NodeId) // To -> []From (the transpose)
	for _, e := range b.edges {
		if e.Kind != EdgeData {
			continue
		}
		dependents[e.From] = append(dependents[e.From], e.To)
		dependencies[e.To] = append(dependencies[e.To], e.From)
	}

	order, err := scheduler.TopoSort(b.order, dependencies)
	if err != nil {
		return nil, errors.Wrap(ErrCycle, err.Error())
	}

	ops := make(map[NodeId]*OperatorRecord, len(b.operators))
	for k, v := range b.operators {
		ops[k] = v
	}

	return &CircuitDefinition{
		ID:           b.id,
		Operators:    ops,
		InsertionOrder: append([]NodeId(nil), b.order...),
		Edges:        append([]Edge(nil), b.edges...),
		Dependents:   dependents,
		Dependencies: dependencies,
		ExecOrder:    order,
		Inputs:       b.inputs,
		Outputs:      b.outputs,
		Clocks:       make([]int64, 1),
	}, nil
}
