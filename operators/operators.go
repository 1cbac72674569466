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

// Package operators implements the stock circuit.Operator variants: Filter,
// Map, and the two fused shapes the optimizer produces. Per spec.md §9
// ("Dynamic dispatch vs. specialization"), the scheduler only ever sees the
// narrow circuit.Operator capability, so elements here are carried boxed as
// `any` between operators; the tagged circuit.OperatorKind on each node is
// what lets the optimizer pattern-match for fusion without reflection.
package operators

import (
	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/circuit"
)

// Row is one weighted element flowing on an edge between operators.
type Row struct {
	Value  any
	Weight algebra.Weight
}

// Source emits the rows pushed into it: each Step moves every row pushed
// since the previous Step into the output buffer at once, and a Step with
// nothing pushed adds nothing. Used to inject values into a circuit.
type Source struct {
	pending []Row
	out     []Row
}

func NewSource() *Source { return &Source{} }

// Push enqueues a row to be emitted on the next Step call.
func (s *Source) Push(v any, w algebra.Weight) { s.pending = append(s.pending, Row{v, w}) }

func (s *Source) Step() error {
	s.out = append(s.out, s.pending...)
	s.pending = s.pending[:0]
	return nil
}

func (s *Source) Flush() error { return nil }

// Drain removes and returns everything produced so far.
func (s *Source) Drain() []Row {
	out := s.out
	s.out = nil
	return out
}

// Sink accumulates whatever is fed to it via Receive, for inspection by
// output handles.
type Sink struct {
	rows []Row
}

func NewSink() *Sink { return &Sink{} }

func (s *Sink) Receive(rows []Row) { s.rows = append(s.rows, rows...) }

func (s *Sink) Step() error  { return nil }
func (s *Sink) Flush() error { return nil }

func (s *Sink) Rows() []Row { return s.rows }

// Upstream is the minimal capability an operator needs from its single
// input: drain whatever the producer emitted since the last Step.
type Upstream interface {
	Drain() []Row
}

// Filter keeps rows for which Predicate returns true, per spec.md §4.2's
// Z-set Filter lifted onto the stream of per-step deltas.
type Filter struct {
	In        Upstream
	Predicate func(any) bool
	out       []Row
}

func NewFilter(in Upstream, pred func(any) bool) *Filter {
	return &Filter{In: in, Predicate: pred}
}

func (f *Filter) Step() error {
	for _, r := range f.In.Drain() {
		if f.Predicate(r.Value) {
			f.out = append(f.out, r)
		}
	}
	return nil
}

func (f *Filter) Flush() error { return nil }

func (f *Filter) Drain() []Row {
	out := f.out
	f.out = nil
	return out
}

// Map transforms every row's value via Transform, preserving weight.
type Map struct {
	In        Upstream
	Transform func(any) any
	out       []Row
}

func NewMap(in Upstream, transform func(any) any) *Map {
	return &Map{In: in, Transform: transform}
}

func (m *Map) Step() error {
	for _, r := range m.In.Drain() {
		m.out = append(m.out, Row{Value: m.Transform(r.Value), Weight: r.Weight})
	}
	return nil
}

func (m *Map) Flush() error { return nil }

func (m *Map) Drain() []Row {
	out := m.out
	m.out = nil
	return out
}

// FilterMap is the fused form of a Filter immediately feeding a Map: apply
// Predicate first, and only on rows that survive, apply Transform. Produced
// by the optimizer's Filter-then-Map fusion rule (spec.md §4.7); never
// constructed directly by circuit-building code.
type FilterMap struct {
	In        Upstream
	Predicate func(any) bool
	Transform func(any) any
	out       []Row
}

func (fm *FilterMap) Step() error {
	for _, r := range fm.In.Drain() {
		if fm.Predicate(r.Value) {
			fm.out = append(fm.out, Row{Value: fm.Transform(r.Value), Weight: r.Weight})
		}
	}
	return nil
}

func (fm *FilterMap) Flush() error { return nil }

func (fm *FilterMap) Drain() []Row {
	out := fm.out
	fm.out = nil
	return out
}

// MapFilter is the fused form of a Map immediately feeding a Filter: apply
// Transform first, and Predicate tests the transformed value. Produced by
// the optimizer's Map-then-Filter fusion rule.
type MapFilter struct {
	In        Upstream
	Transform func(any) any
	Predicate func(any) bool
	out       []Row
}

func (mf *MapFilter) Step() error {
	for _, r := range mf.In.Drain() {
		v := mf.Transform(r.Value)
		if mf.Predicate(v) {
			mf.out = append(mf.out, Row{Value: v, Weight: r.Weight})
		}
	}
	return nil
}

func (mf *MapFilter) Flush() error { return nil }

func (mf *MapFilter) Drain() []Row {
	out := mf.out
	mf.out = nil
	return out
}

var (
	_ circuit.Operator = (*Source)(nil)
	_ circuit.Operator = (*Sink)(nil)
	_ circuit.Operator = (*Filter)(nil)
	_ circuit.Operator = (*Map)(nil)
	_ circuit.Operator = (*FilterMap)(nil)
	_ circuit.Operator = (*MapFilter)(nil)
)
