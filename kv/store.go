package kv

import "github.com/dbspgo/dbsp/algebra"

// Iterator is a forward, lower-bound-seekable cursor over a Store, per the
// abstract ordered KV contract in spec.md §6.
type Iterator[K, V algebra.Ordered] interface {
	// Seek repositions the cursor at the first key >= lower, returning
	// false if none exists.
	Seek(lower Key[K, V]) bool
	// Next advances the cursor, returning false when exhausted.
	Next() bool
	CurrentKey() Key[K, V]
	CurrentValue() algebra.Weight
	Dispose()
}

// MergeHandle is returned by StartMergeOperation; Join blocks until the
// maintenance merge completes.
type MergeHandle interface {
	Join()
}

// Store is the abstract ordered KV store contract from spec.md §6: a
// dependency this package's semantic layer (Layer, Hybrid) is built
// against. MemStore and LSMStore are the two concrete implementations
// carried in this module (storage.mode InMemory / LSM).
type Store[K, V algebra.Ordered] interface {
	TryGet(key Key[K, V]) (algebra.Weight, bool)
	Upsert(key Key[K, V], weight algebra.Weight)
	TryDelete(key Key[K, V]) (algebra.Weight, bool)
	CreateIterator() Iterator[K, V]

	InMemoryRecordCount() int
	MoveMutableSegmentForward()
	StartMergeOperation() MergeHandle
}
