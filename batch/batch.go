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

// Package batch implements the sorted, consolidated run that underlies
// both the Batch Z-set backend and every level of a Trace: given an
// unordered sequence of (K, weight) pairs, produce a strictly
// key-increasing slice with at most one entry per key and no zero
// weights.
package batch

import (
	"sort"

	"github.com/dbspgo/dbsp/algebra"
)

// largeInputThreshold is the pair count above which Build switches from a
// plain in-place sort to the bucketed k-way merge strategy (spec.md §4.2).
const largeInputThreshold = 200_000

// bucketBits sizes the bucket-sort fan-out used for large inputs: 2^12
// buckets bounds memory for the per-bucket staging slices while still
// giving each bucket a manageable share of a multi-million-pair build.
const bucketBits = 12

// Pair is one (key, weight) entry before consolidation.
type Pair[K algebra.Ordered] struct {
	Key    K
	Weight algebra.Weight
}

// Batch is a strictly key-increasing, consolidated run: Keys[i] < Keys[i+1]
// for all i, and no Weights[i] is zero.
type Batch[K algebra.Ordered] struct {
	pairs []Pair[K]
}

// Len returns the number of entries in the batch.
func (b *Batch[K]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.pairs)
}

// At returns the i-th (key, weight) pair in key order.
func (b *Batch[K]) At(i int) (K, algebra.Weight) {
	p := b.pairs[i]
	return p.Key, p.Weight
}

// Pairs exposes the underlying consolidated slice for read-only iteration.
// Callers must not mutate the returned slice.
func (b *Batch[K]) Pairs() []Pair[K] {
	if b == nil {
		return nil
	}
	return b.pairs
}

// Empty reports whether the batch carries no entries.
func (b *Batch[K]) Empty() bool { return b.Len() == 0 }

// Build normalizes an arbitrary sequence of (K, weight) pairs into a
// sorted, consolidated Batch: duplicate keys are summed and zero-weight
// results are dropped, satisfying the "no zero materialization" invariant.
func Build[K algebra.Ordered](pairs []Pair[K]) *Batch[K] {
	if len(pairs) == 0 {
		return &Batch[K]{}
	}
	if len(pairs) <= largeInputThreshold {
		return &Batch[K]{pairs: sortAndConsolidate(append([]Pair[K](nil), pairs...))}
	}
	return &Batch[K]{pairs: bucketedBuild(pairs)}
}

// BuildFromMap normalizes a map of key to weight. Convenience constructor
// for callers that already coalesced by key.
func BuildFromMap[K comparable, V algebra.Ordered](m map[K]algebra.Weight, keyAsOrdered func(K) V) *Batch[V] {
	pairs := make([]Pair[V], 0, len(m))
	for k, w := range m {
		if w == 0 {
			continue
		}
		pairs = append(pairs, Pair[V]{Key: keyAsOrdered(k), Weight: w})
	}
	return Build(pairs)
}

func sortAndConsolidate[K algebra.Ordered](pairs []Pair[K]) []Pair[K] {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	out := pairs[:0]
	i := 0
	for i < len(pairs) {
		j := i + 1
		sum := pairs[i].Weight
		for j < len(pairs) && pairs[j].Key == pairs[i].Key {
			sum += pairs[j].Weight
			j++
		}
		if sum != 0 {
			out = append(out, Pair[K]{Key: pairs[i].Key, Weight: sum})
		}
		i = j
	}
	return out
}

// bucketedBuild implements the large-input path: hash each key into one of
// 2^bucketBits buckets, sort+consolidate each bucket independently, then
// k-way merge the buckets summing equal keys across bucket boundaries
// (a key can only collide with itself across buckets if the hash is not
// order-preserving, so the final merge step re-consolidates).
func bucketedBuild[K algebra.Ordered](pairs []Pair[K]) []Pair[K] {
	const numBuckets = 1 << bucketBits
	buckets := make([][]Pair[K], numBuckets)
	for _, p := range pairs {
		h := hashKey(p.Key) & (numBuckets - 1)
		buckets[h] = append(buckets[h], p)
	}
	runs := make([][]Pair[K], 0, numBuckets)
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		runs = append(runs, sortAndConsolidate(bucket))
	}
	return kWayMergeConsolidated(runs)
}

// kWayMergeConsolidated merges already-consolidated, sorted runs, summing
// weights for keys that appear in more than one run and dropping zeros.
func kWayMergeConsolidated[K algebra.Ordered](runs [][]Pair[K]) []Pair[K] {
	idx := make([]int, len(runs))
	total := 0
	for _, r := range runs {
		total += len(r)
	}
	out := make([]Pair[K], 0, total)
	for {
		minRun := -1
		for r := range runs {
			if idx[r] >= len(runs[r]) {
				continue
			}
			if minRun == -1 || runs[r][idx[r]].Key < runs[minRun][idx[minRun]].Key {
				minRun = r
			}
		}
		if minRun == -1 {
			break
		}
		key := runs[minRun][idx[minRun]].Key
		var sum algebra.Weight
		for r := range runs {
			for idx[r] < len(runs[r]) && runs[r][idx[r]].Key == key {
				sum += runs[r][idx[r]].Weight
				idx[r]++
			}
		}
		if sum != 0 {
			out = append(out, Pair[K]{Key: key, Weight: sum})
		}
	}
	return out
}

// hashKey produces a bounded-range hash of an ordered key for bucketing.
// It need not be a high quality hash: bucket balance affects only
// construction cost, never correctness, since the final k-way merge
// re-consolidates across bucket boundaries.
func hashKey[K algebra.Ordered](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		var h uint64 = 14695981039346656037
		for i := 0; i < len(v); i++ {
			h ^= uint64(v[i])
			h *= 1099511628211
		}
		return h
	case int:
		return uint64(v) * 2654435761
	case int64:
		return uint64(v) * 2654435761
	case uint64:
		return v * 2654435761
	case float64:
		return uint64(v*1000003) * 2654435761
	default:
		return 0
	}
}
