package zset

import (
	"time"

	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/batch"
	"github.com/dbspgo/dbsp/trace"
)

// BatchZSet is the Batch-backend Z-set from spec.md §4.3: the logical
// content is the Trace representation (§4.2) directly, with Insert/Remove
// buffering into a pending batch that is folded into the trace lazily.
type BatchZSet[K algebra.Ordered] struct {
	tr         *trace.Trace[K]
	maxBatches int
	budget     time.Duration
	pending    []batch.Pair[K]
}

// NewBatchBacked constructs an empty Batch-backed Z-set using the given
// trace compaction policy.
func NewBatchBacked[K algebra.Ordered](maxBatches int, budget time.Duration) *BatchZSet[K] {
	return &BatchZSet[K]{
		tr:         trace.New[K](maxBatches, budget),
		maxBatches: maxBatches,
		budget:     budget,
	}
}

func (z *BatchZSet[K]) drainPending() {
	if len(z.pending) == 0 {
		return
	}
	z.tr.Append(batch.Build(z.pending))
	z.pending = z.pending[:0]
}

func (z *BatchZSet[K]) Zero() ZSet[K] { return NewBatchBacked[K](z.maxBatches, z.budget) }

func (z *BatchZSet[K]) Add(other ZSet[K]) ZSet[K] {
	z.drainPending()
	out := NewBatchBacked[K](z.maxBatches, z.budget)
	out.tr.Add(z.tr)
	if ob, ok := other.(*BatchZSet[K]); ok {
		ob.drainPending()
		out.tr.Add(ob.tr)
		return out
	}
	other.ForEach(func(k K, w algebra.Weight) bool {
		out.pending = append(out.pending, batch.Pair[K]{Key: k, Weight: w})
		return true
	})
	out.drainPending()
	return out
}

func (z *BatchZSet[K]) Negate() ZSet[K] {
	z.drainPending()
	out := NewBatchBacked[K](z.maxBatches, z.budget)
	out.tr = z.tr.Negate()
	return out
}

func (z *BatchZSet[K]) ScalarMul(s algebra.Weight) ZSet[K] {
	z.drainPending()
	out := NewBatchBacked[K](z.maxBatches, z.budget)
	out.tr = z.tr.ScalarMul(s)
	return out
}

func (z *BatchZSet[K]) Insert(k K) ZSet[K] {
	z.pending = append(z.pending, batch.Pair[K]{Key: k, Weight: 1})
	return z
}

func (z *BatchZSet[K]) Remove(k K) ZSet[K] {
	z.pending = append(z.pending, batch.Pair[K]{Key: k, Weight: -1})
	return z
}

func (z *BatchZSet[K]) Filter(pred func(K) bool) ZSet[K] {
	z.drainPending()
	out := NewBatchBacked[K](z.maxBatches, z.budget)
	out.tr.Append(batch.Filter(z.tr.ToSeq(), pred))
	return out
}

func (z *BatchZSet[K]) ForEach(f func(K, algebra.Weight) bool) {
	z.drainPending()
	seq := z.tr.ToSeq()
	for i := 0; i < seq.Len(); i++ {
		k, w := seq.At(i)
		if !f(k, w) {
			return
		}
	}
}

func (z *BatchZSet[K]) Len() int {
	z.drainPending()
	return z.tr.ToSeq().Len()
}

func (z *BatchZSet[K]) Get(k K) (algebra.Weight, bool) {
	z.drainPending()
	return z.tr.Get(k)
}

func (z *BatchZSet[K]) Backend() Backend { return BackendBatch }

func (z *BatchZSet[K]) Equal(other ZSet[K]) bool { return equalZSets[K](z, other) }

func (z *BatchZSet[K]) SampledHash() uint64 { return sampledHash[K](z) }
