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

// Package ixzset implements the Indexed Z-set from spec.md §4.4: a mapping
// from an index key K to a Z-set over payload V, the primitive underlying
// group-by and join.
package ixzset

import (
	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/zset"
)

// Pair is an (index-key, payload) element of the flattened form consumed
// by GroupBy and produced by ToZSet. K and V are both algebra.Ordered, so
// Pair is comparable and usable as a map key, but a tuple type is not
// itself Ordered in Go's type system — hence FlatZSet, not zset.ZSet[Pair],
// is the flattened representation.
type Pair[K, V algebra.Ordered] struct {
	Key     K
	Payload V
}

// FlatZSet is a finite map from (K,V) pairs to non-zero weight: the
// flattened form of an IndexedZSet, per spec.md §4.4 "toZSet flattens to a
// Z-set over (K,V) pairs".
type FlatZSet[K, V algebra.Ordered] struct {
	m map[Pair[K, V]]algebra.Weight
}

// NewFlat constructs an empty FlatZSet.
func NewFlat[K, V algebra.Ordered]() *FlatZSet[K, V] {
	return &FlatZSet[K, V]{m: make(map[Pair[K, V]]algebra.Weight)}
}

func (f *FlatZSet[K, V]) addWeight(p Pair[K, V], delta algebra.Weight) {
	w := f.m[p] + delta
	if w == 0 {
		delete(f.m, p)
		return
	}
	f.m[p] = w
}

// Insert adds one occurrence of (k, v).
func (f *FlatZSet[K, V]) Insert(k K, v V) { f.addWeight(Pair[K, V]{Key: k, Payload: v}, 1) }

// Remove adds one negative occurrence of (k, v).
func (f *FlatZSet[K, V]) Remove(k K, v V) { f.addWeight(Pair[K, V]{Key: k, Payload: v}, -1) }

// ForEach enumerates (pair, weight); no zero weight is ever yielded.
func (f *FlatZSet[K, V]) ForEach(fn func(p Pair[K, V], w algebra.Weight) bool) {
	for p, w := range f.m {
		if !fn(p, w) {
			return
		}
	}
}

// Len returns the number of distinct pairs.
func (f *FlatZSet[K, V]) Len() int { return len(f.m) }

// IndexedZSet is a mapping K -> zset.ZSet[V]; per spec.md §4.4, an empty
// inner Z-set is never stored.
type IndexedZSet[K, V algebra.Ordered] struct {
	cfg  zset.Config
	rows map[K]zset.ZSet[V]
}

// New constructs an empty IndexedZSet whose inner Z-sets use the given
// backend configuration.
func New[K, V algebra.Ordered](cfg zset.Config) *IndexedZSet[K, V] {
	return &IndexedZSet[K, V]{cfg: cfg, rows: make(map[K]zset.ZSet[V])}
}

func (ix *IndexedZSet[K, V]) dropIfEmpty(k K) {
	if z, ok := ix.rows[k]; ok && z.Len() == 0 {
		delete(ix.rows, k)
	}
}

// Get returns the inner Z-set at k, or nil if k is absent.
func (ix *IndexedZSet[K, V]) Get(k K) zset.ZSet[V] {
	return ix.rows[k]
}

// Keys returns the set of index keys with a non-empty inner Z-set.
func (ix *IndexedZSet[K, V]) Keys() []K {
	keys := make([]K, 0, len(ix.rows))
	for k := range ix.rows {
		keys = append(keys, k)
	}
	return keys
}

// Len reports the number of distinct index keys.
func (ix *IndexedZSet[K, V]) Len() int { return len(ix.rows) }

func (ix *IndexedZSet[K, V]) addPayload(k K, v V, w algebra.Weight) {
	z, ok := ix.rows[k]
	if !ok {
		z = zset.New[V](ix.cfg)
	}
	if w > 0 {
		for i := algebra.Weight(0); i < w; i++ {
			z = z.Insert(v)
		}
	} else {
		for i := algebra.Weight(0); i < -w; i++ {
			z = z.Remove(v)
		}
	}
	ix.rows[k] = z
	ix.dropIfEmpty(k)
}

// InsertPayload adds one occurrence of (k, v) (weight +1), creating the
// inner Z-set on demand.
func (ix *IndexedZSet[K, V]) InsertPayload(k K, v V) { ix.addPayload(k, v, 1) }

// RemovePayload adds one negative occurrence of (k, v).
func (ix *IndexedZSet[K, V]) RemovePayload(k K, v V) { ix.addPayload(k, v, -1) }

// GroupBy builds an IndexedZSet from a flattened Z-set over (K,V) pairs,
// bucketing every pair by its index key.
func GroupBy[K, V algebra.Ordered](cfg zset.Config, flat *FlatZSet[K, V]) *IndexedZSet[K, V] {
	out := New[K, V](cfg)
	flat.ForEach(func(p Pair[K, V], w algebra.Weight) bool {
		out.addPayload(p.Key, p.Payload, w)
		return true
	})
	return out
}

// ToZSet flattens an IndexedZSet into its (K,V)-pair representation.
func ToZSet[K, V algebra.Ordered](ix *IndexedZSet[K, V]) *FlatZSet[K, V] {
	out := NewFlat[K, V]()
	for k, z := range ix.rows {
		z.ForEach(func(v V, w algebra.Weight) bool {
			out.addWeight(Pair[K, V]{Key: k, Payload: v}, w)
			return true
		})
	}
	return out
}

// FromZSet is the inverse of ToZSet: GroupBy of the flattened pairs.
func FromZSet[K, V algebra.Ordered](cfg zset.Config, flat *FlatZSet[K, V]) *IndexedZSet[K, V] {
	return GroupBy(cfg, flat)
}

// Add unions two IndexedZSets key-wise.
func Add[K, V algebra.Ordered](a, b *IndexedZSet[K, V]) *IndexedZSet[K, V] {
	out := New[K, V](a.cfg)
	for k, z := range a.rows {
		out.rows[k] = z
	}
	for k, z := range b.rows {
		if existing, ok := out.rows[k]; ok {
			out.rows[k] = existing.Add(z)
		} else {
			out.rows[k] = z.Zero().Add(z)
		}
	}
	for k := range out.rows {
		out.dropIfEmpty(k)
	}
	return out
}

// Negate negates every inner Z-set.
func Negate[K, V algebra.Ordered](a *IndexedZSet[K, V]) *IndexedZSet[K, V] {
	out := New[K, V](a.cfg)
	for k, z := range a.rows {
		out.rows[k] = z.Negate()
	}
	return out
}

// FilterByKey drops rows whose index key fails pred.
func FilterByKey[K, V algebra.Ordered](a *IndexedZSet[K, V], pred func(K) bool) *IndexedZSet[K, V] {
	out := New[K, V](a.cfg)
	for k, z := range a.rows {
		if pred(k) {
			out.rows[k] = z
		}
	}
	return out
}

// FilterByValue filters every row's inner Z-set by pred, dropping rows
// that become empty.
func FilterByValue[K, V algebra.Ordered](a *IndexedZSet[K, V], pred func(V) bool) *IndexedZSet[K, V] {
	out := New[K, V](a.cfg)
	for k, z := range a.rows {
		filtered := z.Filter(pred)
		if filtered.Len() > 0 {
			out.rows[k] = filtered
		}
	}
	return out
}

// MapKeys transforms every index key with f, merging rows that collide
// under the new key.
func MapKeys[K, K2, V algebra.Ordered](a *IndexedZSet[K, V], f func(K) K2) *IndexedZSet[K2, V] {
	out := New[K2, V](a.cfg)
	for k, z := range a.rows {
		k2 := f(k)
		if existing, ok := out.rows[k2]; ok {
			out.rows[k2] = existing.Add(z)
		} else {
			out.rows[k2] = z
		}
		if out.rows[k2].Len() == 0 {
			delete(out.rows, k2)
		}
	}
	return out
}

// InnerJoin matches rows present on both sides by index key; the output
// payload Z-set is the Cartesian product of the two inner Z-sets with
// weight equal to the product of the two side weights, per spec.md §4.4.
func InnerJoin[K, L, R, O algebra.Ordered](
	cfg zset.Config,
	left *IndexedZSet[K, L],
	right *IndexedZSet[K, R],
	combine func(L, R) O,
) *IndexedZSet[K, O] {
	out := New[K, O](cfg)
	for k, lz := range left.rows {
		rz, ok := right.rows[k]
		if !ok {
			continue
		}
		oz := zset.New[O](cfg)
		lz.ForEach(func(lv L, lw algebra.Weight) bool {
			rz.ForEach(func(rv R, rw algebra.Weight) bool {
				w := lw * rw
				if w == 0 {
					return true
				}
				o := combine(lv, rv)
				if w > 0 {
					for i := algebra.Weight(0); i < w; i++ {
						oz = oz.Insert(o)
					}
				} else {
					for i := algebra.Weight(0); i < -w; i++ {
						oz = oz.Remove(o)
					}
				}
				return true
			})
			return true
		})
		if oz.Len() > 0 {
			out.rows[k] = oz
		}
	}
	return out
}
