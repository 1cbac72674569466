package kv

import (
	"sort"
	"sync"
	"time"

	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/overlay"
)

// HybridStore implements Store by keeping a mutable in-memory overlay in
// front of a spine Store, flushing the overlay into the spine once it
// crosses overlay.Thresholds — the storage.mode=Hybrid option from
// spec.md §4.9/§9 "Memory overlays", sharing the overlay package's
// spill/flush contract with zset.AdaptiveZSet.
type HybridStore[K, V algebra.Ordered] struct {
	mu        sync.Mutex
	spine     Store[K, V]
	mem       map[Key[K, V]]algebra.Weight
	th        overlay.Thresholds
	lastFlush time.Time
}

// NewHybridStore wraps spine with an in-memory overlay governed by th.
func NewHybridStore[K, V algebra.Ordered](spine Store[K, V], th overlay.Thresholds) *HybridStore[K, V] {
	return &HybridStore[K, V]{
		spine:     spine,
		mem:       make(map[Key[K, V]]algebra.Weight),
		th:        th,
		lastFlush: time.Now(),
	}
}

func (h *HybridStore[K, V]) TryGet(key Key[K, V]) (algebra.Weight, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, ok := h.mem[key]; ok {
		return w, true
	}
	return h.spine.TryGet(key)
}

func (h *HybridStore[K, V]) Upsert(key Key[K, V], weight algebra.Weight) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mem[key] = weight
	h.maybeFlushLocked()
}

func (h *HybridStore[K, V]) TryDelete(key Key[K, V]) (algebra.Weight, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, ok := h.mem[key]; ok {
		delete(h.mem, key)
		return w, true
	}
	return h.spine.TryDelete(key)
}

func (h *HybridStore[K, V]) InMemoryRecordCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.mem) + h.spine.InMemoryRecordCount()
}

func (h *HybridStore[K, V]) MoveMutableSegmentForward() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushLocked()
	h.spine.MoveMutableSegmentForward()
}

func (h *HybridStore[K, V]) StartMergeOperation() MergeHandle {
	h.mu.Lock()
	h.flushLocked()
	h.mu.Unlock()
	return h.spine.StartMergeOperation()
}

func (h *HybridStore[K, V]) maybeFlushLocked() {
	if overlay.ShouldFlush(len(h.mem), h.lastFlush, time.Now(), h.th) {
		h.flushLocked()
	}
}

func (h *HybridStore[K, V]) flushLocked() {
	for k, w := range h.mem {
		if w == 0 {
			h.spine.TryDelete(k)
			continue
		}
		h.spine.Upsert(k, w)
	}
	h.mem = make(map[Key[K, V]]algebra.Weight)
	h.lastFlush = time.Now()
}

// CreateIterator merges the in-memory overlay with the spine by key, with
// memory taking precedence on collision, per spec.md §4.9.
func (h *HybridStore[K, V]) CreateIterator() Iterator[K, V] {
	h.mu.Lock()
	defer h.mu.Unlock()

	memKeys := make([]Key[K, V], 0, len(h.mem))
	for k := range h.mem {
		memKeys = append(memKeys, k)
	}
	sort.Slice(memKeys, func(i, j int) bool { return Less(memKeys[i], memKeys[j]) })

	spineIt := h.spine.CreateIterator()
	var spineEntries []lsmRecord[K, V]
	if spineIt.Seek(Key[K, V]{}) {
		for {
			spineEntries = append(spineEntries, lsmRecord[K, V]{key: spineIt.CurrentKey(), weight: spineIt.CurrentValue()})
			if !spineIt.Next() {
				break
			}
		}
	}
	spineIt.Dispose()

	merged := make([]lsmRecord[K, V], 0, len(memKeys)+len(spineEntries))
	mi := 0
	for _, se := range spineEntries {
		for mi < len(memKeys) && Less(memKeys[mi], se.key) {
			merged = append(merged, lsmRecord[K, V]{key: memKeys[mi], weight: h.mem[memKeys[mi]]})
			mi++
		}
		if mi < len(memKeys) && memKeys[mi] == se.key {
			merged = append(merged, lsmRecord[K, V]{key: memKeys[mi], weight: h.mem[memKeys[mi]]})
			mi++
			continue
		}
		merged = append(merged, se)
	}
	for ; mi < len(memKeys); mi++ {
		merged = append(merged, lsmRecord[K, V]{key: memKeys[mi], weight: h.mem[memKeys[mi]]})
	}

	return &sliceIterator[K, V]{recs: merged, pos: -1}
}
