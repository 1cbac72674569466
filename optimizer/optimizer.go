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

// Package optimizer runs a fixed rule set over a built circuit.CircuitDefinition:
// dead-code elimination and filter/map fusion, per spec.md §4.7.
package optimizer

import "github.com/dbspgo/dbsp/circuit"

// Rule is one optimization pass component. The optimizer runs each
// registered rule at most once per Run call (a single pass is the current
// policy, per spec.md §4.7).
type Rule interface {
	Name() string
	CanApply(def *circuit.CircuitDefinition) bool
	Apply(def *circuit.CircuitDefinition) *circuit.CircuitDefinition
}

// DefaultRules returns the standard rule set in the order spec.md lists
// them: dead-code elimination first (it can only shrink the graph that
// fusion then works over), then the two fusion rules.
func DefaultRules() []Rule {
	return []Rule{
		DeadCodeElimination{},
		FilterMapFusion{},
		MapFilterFusion{},
	}
}

// Run applies each rule in order, skipping rules whose CanApply returns
// false, and returns the resulting definition. def is not mutated in
// place; each Apply returns a new value.
func Run(def *circuit.CircuitDefinition, rules []Rule) *circuit.CircuitDefinition {
	for _, r := range rules {
		if r.CanApply(def) {
			def = r.Apply(def)
		}
	}
	return def
}
