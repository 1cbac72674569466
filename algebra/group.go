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

// Package algebra defines the Group capability shared by every Z-set shape
// in this module: Z-set, IndexedZSet and the temporal trace all implement
// it so generic delta-propagation code (circuit operators, the delta
// builder) can be written once against the contract instead of once per
// shape.
package algebra

// Group is the commutative-group contract every additive Z-set shape
// satisfies: Zero is the identity, Add is associative/commutative, Negate
// is involutive, and ScalarMul distributes over Add. Implementations are
// value types returned from every operation; none of the methods mutate
// the receiver in place.
//
//	a.Add(b) == b.Add(a)
//	a.Add(b).Add(c) == a.Add(b.Add(c))
//	a.Add(a.Zero()) == a
//	a.Add(a.Negate()) == a.Zero()
type Group[T any] interface {
	Zero() T
	Add(other T) T
	Negate() T
	ScalarMul(s int64) T
}

// Diff computes a.Add(b.Negate()), the group difference, for any Group
// implementation. It is provided once here so callers never have to
// hand-roll "a + (-b)".
func Diff[T Group[T]](a, b T) T {
	return a.Add(b.Negate())
}

// Equatable is implemented by Group types that expose equality through
// their own Equal method. Callers that can compare T with == (comparable
// types) should prefer that directly; ZeroCheck uses Equatable for the
// rest.
type Equatable[T any] interface {
	Equal(other T) bool
}

// ZeroCheck reports whether v is the identity element, using Equatable
// when available.
func ZeroCheck[T interface {
	Group[T]
	Equatable[T]
}](v T) bool {
	return v.Equal(v.Zero())
}
