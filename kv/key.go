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

// Package kv implements the storage backend from spec.md §4.9: the
// semantic layer consuming an abstract ordered KV store (§6, treated as an
// external collaborator) over the composite key KV = (K,V).
package kv

import "github.com/dbspgo/dbsp/algebra"

// Key is the composite storage key from spec.md §3: ordered lexically by
// K, then by V.
type Key[K, V algebra.Ordered] struct {
	K K
	V V
}

// Less reports whether a sorts strictly before b.
func Less[K, V algebra.Ordered](a, b Key[K, V]) bool {
	if a.K != b.K {
		return a.K < b.K
	}
	return a.V < b.V
}

// lowerBound builds the seek pivot used by point Get: (k, zero value of V).
// spec.md §9's open questions note the store is not required to guarantee
// a true minimum V, only that Get returns some (V, w) pair for a matching
// K; the zero value is a reasonable, if not universally minimal, pivot.
func lowerBound[K, V algebra.Ordered](k K) Key[K, V] {
	var zero V
	return Key[K, V]{K: k, V: zero}
}
