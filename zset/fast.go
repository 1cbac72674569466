package zset

import (
	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/dbspgo/dbsp/algebra"
)

// fastSlot is one bucket of the open-addressed table: dist is the number
// of probes from the key's home bucket (-1 meaning empty), used for the
// Robin Hood displacement rule (an incoming entry displaces a resident
// entry whose probe distance is smaller).
type fastSlot[K algebra.Ordered] struct {
	key    K
	weight algebra.Weight
	dist   int32
}

const fastEmptyDist = -1

// FastZSet is the open-addressed, Robin-Hood hashed backend from
// spec.md §4.3: bounded worst-case probe length under high load, explicit
// tombstone-free deletion (deletions backward-shift instead), and a
// roaring-bitmap index of occupied slots so enumeration can skip empty
// buckets without scanning the dist array.
type FastZSet[K algebra.Ordered] struct {
	slots    []fastSlot[K]
	occupied *roaring.Bitmap
	size     int
}

const fastInitialCapacity = 16
const fastMaxLoadFactorNum = 9
const fastMaxLoadFactorDen = 10

// NewFast constructs an empty Fast-backed Z-set.
func NewFast[K algebra.Ordered]() *FastZSet[K] {
	z := &FastZSet[K]{
		slots:    make([]fastSlot[K], fastInitialCapacity),
		occupied: roaring.New(),
	}
	for i := range z.slots {
		z.slots[i].dist = fastEmptyDist
	}
	return z
}

func (z *FastZSet[K]) Zero() ZSet[K] { return NewFast[K]() }

func (z *FastZSet[K]) Add(other ZSet[K]) ZSet[K] {
	out := NewFast[K]()
	z.ForEach(func(k K, w algebra.Weight) bool { out.addWeight(k, w); return true })
	other.ForEach(func(k K, w algebra.Weight) bool { out.addWeight(k, w); return true })
	return out
}

func (z *FastZSet[K]) Negate() ZSet[K] {
	out := NewFast[K]()
	z.ForEach(func(k K, w algebra.Weight) bool { out.addWeight(k, -w); return true })
	return out
}

func (z *FastZSet[K]) ScalarMul(s algebra.Weight) ZSet[K] {
	out := NewFast[K]()
	if s == 0 {
		return out
	}
	z.ForEach(func(k K, w algebra.Weight) bool { out.addWeight(k, s*w); return true })
	return out
}

func (z *FastZSet[K]) Insert(k K) ZSet[K] {
	z.addWeight(k, 1)
	return z
}

func (z *FastZSet[K]) Remove(k K) ZSet[K] {
	z.addWeight(k, -1)
	return z
}

func (z *FastZSet[K]) Filter(pred func(K) bool) ZSet[K] {
	out := NewFast[K]()
	z.ForEach(func(k K, w algebra.Weight) bool {
		if pred(k) {
			out.addWeight(k, w)
		}
		return true
	})
	return out
}

func (z *FastZSet[K]) ForEach(f func(K, algebra.Weight) bool) {
	it := z.occupied.Iterator()
	for it.HasNext() {
		idx := it.Next()
		s := z.slots[idx]
		if !f(s.key, s.weight) {
			return
		}
	}
}

func (z *FastZSet[K]) Len() int { return z.size }

func (z *FastZSet[K]) Get(k K) (algebra.Weight, bool) {
	idx, ok := z.find(k)
	if !ok {
		return 0, false
	}
	return z.slots[idx].weight, true
}

func (z *FastZSet[K]) Backend() Backend { return BackendFast }

func (z *FastZSet[K]) Equal(other ZSet[K]) bool { return equalZSets[K](z, other) }

func (z *FastZSet[K]) SampledHash() uint64 { return sampledHash[K](z) }

func (z *FastZSet[K]) addWeight(k K, delta algebra.Weight) {
	if idx, ok := z.find(k); ok {
		w := z.slots[idx].weight + delta
		if w == 0 {
			z.deleteAt(idx)
			return
		}
		z.slots[idx].weight = w
		return
	}
	if delta == 0 {
		return
	}
	z.maybeGrow()
	z.robinHoodInsert(k, delta)
}

func (z *FastZSet[K]) capacity() int { return len(z.slots) }

func (z *FastZSet[K]) homeIndex(k K) uint32 {
	return uint32(hashAny(k) % uint64(z.capacity()))
}

func (z *FastZSet[K]) find(k K) (int, bool) {
	if z.capacity() == 0 {
		return 0, false
	}
	idx := z.homeIndex(k)
	dist := int32(0)
	cap32 := uint32(z.capacity())
	for {
		slot := z.slots[idx]
		if slot.dist == fastEmptyDist || dist > slot.dist {
			return 0, false
		}
		if slot.key == k {
			return int(idx), true
		}
		idx = (idx + 1) % cap32
		dist++
	}
}

// robinHoodInsert places (k, weight) using the Robin Hood displacement
// rule: whichever entry has probed further from its home bucket stays put;
// the newcomer displaces residents with a shorter probe distance and
// continues inserting the displaced entry.
func (z *FastZSet[K]) robinHoodInsert(k K, weight algebra.Weight) {
	idx := z.homeIndex(k)
	cap32 := uint32(z.capacity())
	incoming := fastSlot[K]{key: k, weight: weight, dist: 0}
	for {
		resident := z.slots[idx]
		if resident.dist == fastEmptyDist {
			z.slots[idx] = incoming
			z.occupied.Add(idx)
			z.size++
			return
		}
		if incoming.dist > resident.dist {
			z.slots[idx] = incoming
			incoming = resident
		}
		idx = (idx + 1) % cap32
		incoming.dist++
	}
}

// deleteAt removes the slot at idx and backward-shifts the subsequent run
// so every displaced entry's distance stays accurate without leaving a
// tombstone behind, per spec.md's "explicit tombstones" note (here
// realized as backward-shift deletion, the standard Robin Hood technique
// that avoids tombstone bookkeeping entirely).
func (z *FastZSet[K]) deleteAt(idx int) {
	z.occupied.Remove(uint32(idx))
	z.size--
	cap32 := uint32(z.capacity())
	cur := uint32(idx)
	for {
		next := (cur + 1) % cap32
		if z.slots[next].dist <= 0 {
			z.slots[cur].dist = fastEmptyDist
			z.occupied.Remove(cur)
			return
		}
		z.slots[cur] = z.slots[next]
		z.slots[cur].dist--
		z.occupied.Add(cur)
		cur = next
	}
}

func (z *FastZSet[K]) maybeGrow() {
	if (z.size+1)*fastMaxLoadFactorDen < z.capacity()*fastMaxLoadFactorNum {
		return
	}
	old := z.slots
	newCap := z.capacity() * 2
	if newCap == 0 {
		newCap = fastInitialCapacity
	}
	z.slots = make([]fastSlot[K], newCap)
	for i := range z.slots {
		z.slots[i].dist = fastEmptyDist
	}
	z.occupied = roaring.New()
	z.size = 0
	for _, s := range old {
		if s.dist != fastEmptyDist {
			z.robinHoodInsert(s.key, s.weight)
		}
	}
}
