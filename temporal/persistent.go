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

package temporal

import (
	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/codec"
	"github.com/dbspgo/dbsp/kv"
)

// kvPair is the (K,V) payload gob-encoded into the string slot of the
// backing store's key. Trace's natural key is the triple (T,K,V), but
// kv.Key[K,V] (kv/key.go) only composes two algebra.Ordered fields and
// a struct pair can't itself satisfy algebra.Ordered (the same constraint
// ixzset works around with FlatZSet) - so the (K,V) half is flattened to
// its gob encoding and carried in kv.Key[Time, string]'s string slot.
type kvPair[K, V algebra.Ordered] struct {
	K K
	V V
}

// PersistentTrace backs a Trace with a kv.Store so entries survive a
// restart, completing spec.md §4.10's "Persistent Temporal Trace": Trace
// alone (temporal.go) only ever lives in memory. Pass a *kv.LSMStore for
// real on-disk durability, the same backend kv.Layer uses for
// storage.mode=LSM; a *kv.MemStore gives the same API without durability,
// useful in tests.
type PersistentTrace[K, V algebra.Ordered] struct {
	mem   *Trace[K, V]
	store kv.Store[Time, string]
	codec codec.Codec[kvPair[K, V]]
}

// NewPersistent constructs a PersistentTrace over an empty or
// already-populated-by-this-type store.
func NewPersistent[K, V algebra.Ordered](store kv.Store[Time, string]) *PersistentTrace[K, V] {
	return &PersistentTrace[K, V]{mem: New[K, V](), store: store, codec: codec.NewGobCodec[kvPair[K, V]]()}
}

// OpenPersistent reconstructs a PersistentTrace's in-memory index (records,
// weights, presence bitmap) from an existing store, e.g. after a process
// restart against the same on-disk directory an earlier PersistentTrace
// wrote to.
func OpenPersistent[K, V algebra.Ordered](store kv.Store[Time, string]) (*PersistentTrace[K, V], error) {
	c := codec.NewGobCodec[kvPair[K, V]]()
	mem := New[K, V]()

	it := store.CreateIterator()
	defer it.Dispose()
	if it.Seek(kv.Key[Time, string]{}) {
		for {
			w := it.CurrentValue()
			if w != 0 {
				k := it.CurrentKey()
				p, err := c.Deserialize([]byte(k.V))
				if err != nil {
					return nil, err
				}
				mem.insertRecord(TKV[K, V]{T: k.K, K: p.K, V: p.V}, w)
			}
			if !it.Next() {
				break
			}
		}
	}
	return &PersistentTrace[K, V]{mem: mem, store: store, codec: c}, nil
}

func (t *PersistentTrace[K, V]) encodeKey(at Time, p kvPair[K, V]) (kv.Key[Time, string], error) {
	raw, err := t.codec.Serialize(p)
	if err != nil {
		return kv.Key[Time, string]{}, err
	}
	return kv.Key[Time, string]{K: at, V: string(raw)}, nil
}

// InsertBatch applies updates to the in-memory trace, then persists the
// resulting absolute per-(T,K,V) weight for each distinct (K,V) touched -
// an Upsert, or a TryDelete once the weight returns to zero, mirroring
// kv.Layer.StoreBatch's write-the-cumulative-value convention.
func (t *PersistentTrace[K, V]) InsertBatch(at Time, updates []Update[K, V]) error {
	t.mem.InsertBatch(at, updates)

	seen := make(map[kvPair[K, V]]bool, len(updates))
	for _, u := range updates {
		p := kvPair[K, V]{K: u.K, V: u.V}
		if seen[p] {
			continue
		}
		seen[p] = true

		key, err := t.encodeKey(at, p)
		if err != nil {
			return err
		}
		w := t.mem.weights[TKV[K, V]{T: at, K: u.K, V: u.V}]
		if w == 0 {
			t.store.TryDelete(key)
			continue
		}
		t.store.Upsert(key, w)
	}
	return nil
}

// QueryAtTime delegates to the in-memory index, which InsertBatch/Maintain
// keep synchronized with the persisted store.
func (t *PersistentTrace[K, V]) QueryAtTime(at Time) []Snapshot[K, V] {
	return t.mem.QueryAtTime(at)
}

// QueryTimeRange delegates to the in-memory index.
func (t *PersistentTrace[K, V]) QueryTimeRange(start, end Time) []TimeBatch[K, V] {
	return t.mem.QueryTimeRange(start, end)
}

// Maintain re-buckets entries older than before the same way Trace.Maintain
// does, then replays the change to the persisted store: every original
// below-before record is deleted and every surviving merged bucket row is
// upserted. Every record with T < before in t.mem.records after
// mem.Maintain returns is exactly one of those merged rows, since a
// bucket's floor time (rec.T/bucket)*bucket never exceeds rec.T.
func (t *PersistentTrace[K, V]) Maintain(before, bucket Time) error {
	if bucket <= 0 {
		return nil
	}
	var oldBelow []TKV[K, V]
	for _, rec := range t.mem.records {
		if rec.T < before {
			oldBelow = append(oldBelow, rec)
		}
	}
	t.mem.Maintain(before, bucket)

	for _, rec := range oldBelow {
		key, err := t.encodeKey(rec.T, kvPair[K, V]{K: rec.K, V: rec.V})
		if err != nil {
			return err
		}
		t.store.TryDelete(key)
	}
	for _, rec := range t.mem.records {
		if rec.T >= before {
			continue
		}
		key, err := t.encodeKey(rec.T, kvPair[K, V]{K: rec.K, V: rec.V})
		if err != nil {
			return err
		}
		t.store.Upsert(key, t.mem.weights[rec])
	}
	return nil
}

// Len reports the number of distinct (T,K,V) records currently held
// in-memory.
func (t *PersistentTrace[K, V]) Len() int { return t.mem.Len() }
