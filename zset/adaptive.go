package zset

import (
	"sort"
	"time"

	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/batch"
	"github.com/dbspgo/dbsp/overlay"
	"github.com/dbspgo/dbsp/trace"
)

// AdaptiveZSet is the composite backend from spec.md §4.3: a small sorted
// vector for the common case of a handful of live keys, graduating to a
// Fast (Robin Hood) memtable once that vector overflows, periodically
// flushed into a Batch spine (trace.Trace) once the combined overlay grows
// past a size or time threshold. The thresholds tighten while an
// ArrangementRegistry reports outstanding arranged views, trading overlay
// latency for read stability under active subscribers.
type AdaptiveZSet[K algebra.Ordered] struct {
	cfg       Config
	small     []batch.Pair[K]
	fast      *FastZSet[K]
	spine     *trace.Trace[K]
	lastFlush time.Time
}

// NewAdaptive constructs an empty Adaptive-backed Z-set using cfg's
// SmallThreshold/FlushSize/FlushInterval/MaxBatches/CompactBudget/Registry.
func NewAdaptive[K algebra.Ordered](cfg Config) *AdaptiveZSet[K] {
	if cfg.SmallThreshold <= 0 {
		cfg.SmallThreshold = DefaultConfig().SmallThreshold
	}
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = DefaultConfig().FlushSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	return &AdaptiveZSet[K]{
		cfg:       cfg,
		fast:      NewFast[K](),
		spine:     trace.New[K](cfg.MaxBatches, cfg.CompactBudget),
		lastFlush: time.Now(),
	}
}

func (z *AdaptiveZSet[K]) thresholds() overlay.Thresholds {
	th := overlay.Thresholds{SizeThreshold: z.cfg.FlushSize, TimeThreshold: z.cfg.FlushInterval}
	if z.cfg.Registry.Outstanding() > 0 {
		th = th.Tightened(4)
	}
	return th
}

func (z *AdaptiveZSet[K]) combinedSize() int { return len(z.small) + z.fast.Len() }

func (z *AdaptiveZSet[K]) usingSmall() bool {
	return z.fast.Len() == 0 && len(z.small) <= z.cfg.SmallThreshold
}

// smallAdd adds delta to k's weight in the sorted small vector, inserting
// k if absent and dropping the entry if the resulting weight is zero.
func (z *AdaptiveZSet[K]) smallAdd(k K, delta algebra.Weight) {
	i := sort.Search(len(z.small), func(i int) bool { return z.small[i].Key >= k })
	if i < len(z.small) && z.small[i].Key == k {
		w := z.small[i].Weight + delta
		if w == 0 {
			z.small = append(z.small[:i], z.small[i+1:]...)
			return
		}
		z.small[i].Weight = w
		return
	}
	if delta == 0 {
		return
	}
	z.small = append(z.small, batch.Pair[K]{})
	copy(z.small[i+1:], z.small[i:])
	z.small[i] = batch.Pair[K]{Key: k, Weight: delta}
}

func (z *AdaptiveZSet[K]) migrateSmallToFast() {
	for _, p := range z.small {
		z.fast.addWeight(p.Key, p.Weight)
	}
	z.small = z.small[:0]
}

func (z *AdaptiveZSet[K]) addWeight(k K, delta algebra.Weight) {
	if z.usingSmall() {
		z.smallAdd(k, delta)
		if len(z.small) > z.cfg.SmallThreshold {
			z.migrateSmallToFast()
		}
	} else {
		z.fast.addWeight(k, delta)
	}
	z.maybeFlush()
}

func (z *AdaptiveZSet[K]) maybeFlush() {
	if overlay.ShouldFlush(z.combinedSize(), z.lastFlush, time.Now(), z.thresholds()) {
		z.flush()
	}
}

// flush folds the small vector and Fast memtable into a single batch and
// appends it to the spine, emptying the overlay.
func (z *AdaptiveZSet[K]) flush() {
	if z.combinedSize() == 0 {
		z.lastFlush = time.Now()
		return
	}
	pairs := make([]batch.Pair[K], 0, z.combinedSize())
	pairs = append(pairs, z.small...)
	z.fast.ForEach(func(k K, w algebra.Weight) bool {
		pairs = append(pairs, batch.Pair[K]{Key: k, Weight: w})
		return true
	})
	z.spine.Append(batch.Build(pairs))
	z.small = z.small[:0]
	z.fast = NewFast[K]()
	z.lastFlush = time.Now()
}

func (z *AdaptiveZSet[K]) Zero() ZSet[K] { return NewAdaptive[K](z.cfg) }

func (z *AdaptiveZSet[K]) Add(other ZSet[K]) ZSet[K] {
	out := NewAdaptive[K](z.cfg)
	z.ForEach(func(k K, w algebra.Weight) bool { out.addWeight(k, w); return true })
	other.ForEach(func(k K, w algebra.Weight) bool { out.addWeight(k, w); return true })
	return out
}

func (z *AdaptiveZSet[K]) Negate() ZSet[K] {
	out := NewAdaptive[K](z.cfg)
	z.ForEach(func(k K, w algebra.Weight) bool { out.addWeight(k, -w); return true })
	return out
}

func (z *AdaptiveZSet[K]) ScalarMul(s algebra.Weight) ZSet[K] {
	out := NewAdaptive[K](z.cfg)
	if s == 0 {
		return out
	}
	z.ForEach(func(k K, w algebra.Weight) bool { out.addWeight(k, s*w); return true })
	return out
}

func (z *AdaptiveZSet[K]) Insert(k K) ZSet[K] {
	z.addWeight(k, 1)
	return z
}

func (z *AdaptiveZSet[K]) Remove(k K) ZSet[K] {
	z.addWeight(k, -1)
	return z
}

func (z *AdaptiveZSet[K]) Filter(pred func(K) bool) ZSet[K] {
	out := NewAdaptive[K](z.cfg)
	z.ForEach(func(k K, w algebra.Weight) bool {
		if pred(k) {
			out.addWeight(k, w)
		}
		return true
	})
	return out
}

// ForEach flushes the overlay first so every key is reported exactly once,
// summed across whatever layers it used to live in.
func (z *AdaptiveZSet[K]) ForEach(f func(K, algebra.Weight) bool) {
	z.flush()
	seq := z.spine.ToSeq()
	for i := 0; i < seq.Len(); i++ {
		k, w := seq.At(i)
		if !f(k, w) {
			return
		}
	}
}

func (z *AdaptiveZSet[K]) Len() int {
	z.flush()
	return z.spine.ToSeq().Len()
}

// Get probes the small vector, then the Fast memtable, then the spine,
// summing any contributions found (a key inserted again after a flush has
// weight both in the overlay and in the spine).
func (z *AdaptiveZSet[K]) Get(k K) (algebra.Weight, bool) {
	var total algebra.Weight
	found := false
	i := sort.Search(len(z.small), func(i int) bool { return z.small[i].Key >= k })
	if i < len(z.small) && z.small[i].Key == k {
		total += z.small[i].Weight
		found = true
	}
	if w, ok := z.fast.Get(k); ok {
		total += w
		found = true
	}
	if w, ok := z.spine.Get(k); ok {
		total += w
		found = true
	}
	if total == 0 {
		return 0, false
	}
	return total, found
}

func (z *AdaptiveZSet[K]) Backend() Backend { return BackendAdaptive }

func (z *AdaptiveZSet[K]) Equal(other ZSet[K]) bool { return equalZSets[K](z, other) }

func (z *AdaptiveZSet[K]) SampledHash() uint64 { return sampledHash[K](z) }
