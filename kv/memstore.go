package kv

import (
	"github.com/google/btree"

	"github.com/dbspgo/dbsp/algebra"
)

type memRecord[K, V algebra.Ordered] struct {
	key    Key[K, V]
	weight algebra.Weight
}

// MemStore is the in-memory reference implementation of Store, backed by
// a google/btree ordered tree — the storage.mode=InMemory option from
// spec.md §6. There is no separate mutable/immutable segment distinction;
// MoveMutableSegmentForward and StartMergeOperation are no-ops so MemStore
// can stand in for LSMStore in tests exercising the semantic layer.
type MemStore[K, V algebra.Ordered] struct {
	tree *btree.BTreeG[memRecord[K, V]]
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore[K, V algebra.Ordered]() *MemStore[K, V] {
	less := func(a, b memRecord[K, V]) bool { return Less(a.key, b.key) }
	return &MemStore[K, V]{tree: btree.NewG[memRecord[K, V]](32, less)}
}

func (s *MemStore[K, V]) TryGet(key Key[K, V]) (algebra.Weight, bool) {
	r, ok := s.tree.Get(memRecord[K, V]{key: key})
	if !ok {
		return 0, false
	}
	return r.weight, true
}

func (s *MemStore[K, V]) Upsert(key Key[K, V], weight algebra.Weight) {
	s.tree.ReplaceOrInsert(memRecord[K, V]{key: key, weight: weight})
}

func (s *MemStore[K, V]) TryDelete(key Key[K, V]) (algebra.Weight, bool) {
	r, ok := s.tree.Delete(memRecord[K, V]{key: key})
	if !ok {
		return 0, false
	}
	return r.weight, true
}

func (s *MemStore[K, V]) InMemoryRecordCount() int { return s.tree.Len() }

func (s *MemStore[K, V]) MoveMutableSegmentForward() {}

func (s *MemStore[K, V]) StartMergeOperation() MergeHandle { return noopMerge{} }

func (s *MemStore[K, V]) CreateIterator() Iterator[K, V] {
	return &memIterator[K, V]{store: s}
}

type noopMerge struct{}

func (noopMerge) Join() {}

type memIterator[K, V algebra.Ordered] struct {
	store   *MemStore[K, V]
	current memRecord[K, V]
	ok      bool
	started bool
}

func (it *memIterator[K, V]) Seek(lower Key[K, V]) bool {
	it.started = true
	it.ok = false
	it.store.tree.AscendGreaterOrEqual(memRecord[K, V]{key: lower}, func(r memRecord[K, V]) bool {
		it.current = r
		it.ok = true
		return false
	})
	return it.ok
}

func (it *memIterator[K, V]) Next() bool {
	if !it.started {
		return it.Seek(Key[K, V]{})
	}
	if !it.ok {
		return false
	}
	found := false
	prev := it.current
	it.ok = false
	it.store.tree.AscendGreaterOrEqual(prev, func(r memRecord[K, V]) bool {
		if !found {
			// the first hit is prev itself (inclusive bound); skip it.
			found = true
			return true
		}
		it.current = r
		it.ok = true
		return false
	})
	return it.ok
}

func (it *memIterator[K, V]) CurrentKey() Key[K, V]         { return it.current.key }
func (it *memIterator[K, V]) CurrentValue() algebra.Weight  { return it.current.weight }
func (it *memIterator[K, V]) Dispose()                      {}
