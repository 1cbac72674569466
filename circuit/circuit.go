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

// Package circuit implements the dataflow graph entities from
// spec.md §3/§4.5: nodes, operators, edges, and the immutable
// CircuitDefinition produced by Builder.Build.
package circuit

import (
	"fmt"

	"github.com/pkg/errors"
)

// NodeId is a 64-bit identifier unique within a circuit.
type NodeId int64

// CircuitId names a circuit instance.
type CircuitId int64

// GlobalNodeId is a node id qualified by its owning circuit.
type GlobalNodeId struct {
	Circuit CircuitId
	Node    NodeId
}

func (g GlobalNodeId) String() string { return fmt.Sprintf("%d/%d", g.Circuit, g.Node) }

// EdgeKind distinguishes ordinary data-flow edges from feedback edges
// used to implement recursion (spec.md §9 "Feedback cycles"); the
// scheduler treats feedback edges as breaking cycles for topological
// ordering.
type EdgeKind int

const (
	EdgeData EdgeKind = iota
	EdgeFeedback
)

// Edge is a directed connection from From's output to To's input.
type Edge struct {
	From, To NodeId
	Kind     EdgeKind
}

// Operator is the narrow capability the scheduler and runtime drive
// (spec.md §9 "Dynamic dispatch vs. specialization"): step advances the
// operator by one runtime step; Flush lets it push any buffered output
// before the step boundary. Kind tags the concrete operator variety
// (filter, map, join, ...) so the optimizer can pattern-match without
// reflection.
type Operator interface {
	Step() error
	Flush() error
}

// Stateful is implemented by operators that participate in checkpointing.
type Stateful interface {
	SerializeState() ([]byte, error)
	DeserializeState([]byte) error
}

// OperatorKind tags the operator variety for fusion pattern matching.
type OperatorKind string

const (
	KindSource    OperatorKind = "Source"
	KindSink      OperatorKind = "Sink"
	KindFilter    OperatorKind = "Filter"
	KindMap       OperatorKind = "Map"
	KindFilterMap OperatorKind = "FilterMap"
	KindMapFilter OperatorKind = "MapFilter"
	KindJoin      OperatorKind = "Join"
	KindIntegrate OperatorKind = "Integrate"
	KindGeneric   OperatorKind = "Generic"
)

// OperatorRecord is the builder's bookkeeping entry for one node: its
// metadata, the operator object, and the node ids of its declared inputs.
type OperatorRecord struct {
	Node     NodeId
	Name     string
	Kind     OperatorKind
	Location string // optional source location, e.g. "file.go:42"
	Op       Operator
	Inputs   []NodeId
}

// StreamHandle is a typed carrier: a node id plus a consumer count, per
// spec.md §3.
type StreamHandle struct {
	Node     NodeId
	Consumed int
}

// ErrDuplicateNode is returned when AddOperator reuses a node id.
var ErrDuplicateNode = errors.New("circuit: duplicate node id")

// ErrUnknownNode is returned when an edge references a node that was
// never added.
var ErrUnknownNode = errors.New("circuit: edge references unknown node")

// ErrCycle is returned when Build detects a cycle among pure data-flow
// edges (feedback edges are exempt).
var ErrCycle = errors.New("circuit: cycle detected among data-flow edges")
