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

// Package delta provides typed helpers for building the (key, weight) pair
// sequences every Z-set operation consumes, so callers at the edges of a
// circuit (input handles, test fixtures) do not hand-roll batch.Pair
// literals.
package delta

import (
	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/batch"
	"github.com/dbspgo/dbsp/zset"
)

// Builder accumulates weighted updates for a single Z-set application.
// Nothing is consolidated here; zset.ZSet.Add/batch.Build do that.
type Builder[K algebra.Ordered] struct {
	pairs []batch.Pair[K]
}

// New returns an empty Builder.
func New[K algebra.Ordered]() *Builder[K] {
	return &Builder[K]{}
}

// Insert records a +1 weight for k.
func (b *Builder[K]) Insert(k K) *Builder[K] {
	b.pairs = append(b.pairs, batch.Pair[K]{Key: k, Weight: 1})
	return b
}

// Remove records a -1 weight for k.
func (b *Builder[K]) Remove(k K) *Builder[K] {
	b.pairs = append(b.pairs, batch.Pair[K]{Key: k, Weight: -1})
	return b
}

// Move records a -1 weight for from and a +1 weight for to: the update
// sequence that replaces one key with another within the same batch.
func (b *Builder[K]) Move(from, to K) *Builder[K] {
	return b.Remove(from).Insert(to)
}

// Weighted records an explicit weight delta for k.
func (b *Builder[K]) Weighted(k K, w algebra.Weight) *Builder[K] {
	b.pairs = append(b.pairs, batch.Pair[K]{Key: k, Weight: w})
	return b
}

// Pairs returns the accumulated, unconsolidated pair sequence.
func (b *Builder[K]) Pairs() []batch.Pair[K] {
	return append([]batch.Pair[K](nil), b.pairs...)
}

// Apply folds every accumulated (key, weight) pair into z and returns the
// updated Z-set. zset.ZSet values are immutable (per its Group contract),
// so the result must replace the caller's reference; weights with
// magnitude greater than one are applied via that many Insert/Remove
// calls, since the interface only exposes unit-weight mutation.
func (b *Builder[K]) Apply(z zset.ZSet[K]) zset.ZSet[K] {
	for _, p := range b.pairs {
		w := p.Weight
		if w > 0 {
			for ; w > 0; w-- {
				z = z.Insert(p.Key)
			}
		} else {
			for ; w < 0; w++ {
				z = z.Remove(p.Key)
			}
		}
	}
	return z
}

// FromPairs wraps a pre-built pair slice in a Builder, e.g. to apply a
// batch produced elsewhere.
func FromPairs[K algebra.Ordered](pairs []batch.Pair[K]) *Builder[K] {
	return &Builder[K]{pairs: append([]batch.Pair[K](nil), pairs...)}
}

// FromSlice builds insert-only deltas (+1 each) from a plain key slice.
func FromSlice[K algebra.Ordered](keys []K) *Builder[K] {
	b := New[K]()
	for _, k := range keys {
		b.Insert(k)
	}
	return b
}
