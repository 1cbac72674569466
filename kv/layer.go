package kv

import "github.com/dbspgo/dbsp/algebra"

// Update is one coalesced write in a StoreBatch call.
type Update[K, V algebra.Ordered] struct {
	Key    Key[K, V]
	Delta  algebra.Weight
}

// Layer is the semantic layer from spec.md §4.9 built atop an abstract
// Store: coalescing batch writes, point/full/range reads, and
// maintenance-triggered compaction.
type Layer[K, V algebra.Ordered] struct {
	store             Store[K, V]
	compactionCount   int
	lastCompactionOK  bool
}

// NewLayer wraps store with the spec.md §4.9 semantics.
func NewLayer[K, V algebra.Ordered](store Store[K, V]) *Layer[K, V] {
	return &Layer[K, V]{store: store}
}

// StoreBatch coalesces updates by (K,V) in memory (sum weights, drop
// zeros), then applies each surviving delta to the store: absent keys are
// upserted directly (if the coalesced delta is non-zero); present keys
// have the delta added, deleting on a zero sum.
func (l *Layer[K, V]) StoreBatch(updates []Update[K, V]) {
	coalesced := make(map[Key[K, V]]algebra.Weight, len(updates))
	order := make([]Key[K, V], 0, len(updates))
	for _, u := range updates {
		if _, seen := coalesced[u.Key]; !seen {
			order = append(order, u.Key)
		}
		coalesced[u.Key] += u.Delta
	}
	for _, k := range order {
		delta := coalesced[k]
		if delta == 0 {
			continue
		}
		existing, ok := l.store.TryGet(k)
		if !ok {
			l.store.Upsert(k, delta)
			continue
		}
		sum := existing + delta
		if sum == 0 {
			l.store.TryDelete(k)
			continue
		}
		l.store.Upsert(k, sum)
	}
}

// Get performs the point lookup from spec.md §4.9: seek to (k, min-V),
// advance while the key prefix matches, return the first (V,w) seen.
func (l *Layer[K, V]) Get(k K) (V, algebra.Weight, bool) {
	it := l.store.CreateIterator()
	defer it.Dispose()
	if !it.Seek(lowerBound[K, V](k)) {
		var zero V
		return zero, 0, false
	}
	if it.CurrentKey().K != k {
		var zero V
		return zero, 0, false
	}
	return it.CurrentKey().V, it.CurrentValue(), true
}

// Entry is one non-zero-weight record yielded by enumeration.
type Entry[K, V algebra.Ordered] struct {
	K      K
	V      V
	Weight algebra.Weight
}

// All performs a forward scan, yielding every non-zero-weight record.
func (l *Layer[K, V]) All(f func(Entry[K, V]) bool) {
	it := l.store.CreateIterator()
	defer it.Dispose()
	if !it.Seek(Key[K, V]{}) {
		return
	}
	for {
		w := it.CurrentValue()
		if w != 0 {
			k := it.CurrentKey()
			if !f(Entry[K, V]{K: k.K, V: k.V, Weight: w}) {
				return
			}
		}
		if !it.Next() {
			return
		}
	}
}

// Range performs a forward scan bounded by key prefix [start, end].
func (l *Layer[K, V]) Range(start, end K, f func(Entry[K, V]) bool) {
	it := l.store.CreateIterator()
	defer it.Dispose()
	if !it.Seek(lowerBound[K, V](start)) {
		return
	}
	for {
		k := it.CurrentKey()
		if k.K > end {
			return
		}
		w := it.CurrentValue()
		if w != 0 {
			if !f(Entry[K, V]{K: k.K, V: k.V, Weight: w}) {
				return
			}
		}
		if !it.Next() {
			return
		}
	}
}

// Compact invokes the underlying store's maintenance: move the mutable
// segment forward and merge until no in-memory records remain.
func (l *Layer[K, V]) Compact() {
	l.store.MoveMutableSegmentForward()
	l.store.StartMergeOperation().Join()
	l.compactionCount++
	l.lastCompactionOK = l.store.InMemoryRecordCount() == 0
}

// CompactionCount reports how many times Compact has been invoked.
func (l *Layer[K, V]) CompactionCount() int { return l.compactionCount }
