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

// Package trace implements the LSM-like layered batch structure: a Trace
// represents a Z-set as the multiset sum of an ordered list of batches
// ("levels"), merged lazily and compacted under a time budget so a long
// append sequence never accumulates an unbounded number of levels.
package trace

import (
	"time"

	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/batch"
)

// DefaultMaxBatches is R in spec.md §4.2/§6 (adaptive.R): once more than
// this many levels accumulate, compaction pairwise-merges the two oldest
// until the budget runs out or the level count drops to R.
const DefaultMaxBatches = 4

// DefaultCompactBudget is the default per-call compaction time budget
// (adaptive.compactBudgetMs).
const DefaultCompactBudget = 2 * time.Millisecond

// Trace holds an ordered list of levels, oldest first, plus a memoized
// consolidated merge that is invalidated on any mutation.
type Trace[K algebra.Ordered] struct {
	levels        []*batch.Batch[K]
	maxBatches    int
	compactBudget time.Duration
	memo          *batch.Batch[K]
}

// New returns an empty trace using the given compaction policy. A
// maxBatches of 0 uses DefaultMaxBatches; a zero budget uses
// DefaultCompactBudget.
func New[K algebra.Ordered](maxBatches int, compactBudget time.Duration) *Trace[K] {
	if maxBatches <= 0 {
		maxBatches = DefaultMaxBatches
	}
	if compactBudget <= 0 {
		compactBudget = DefaultCompactBudget
	}
	return &Trace[K]{maxBatches: maxBatches, compactBudget: compactBudget}
}

// NumLevels returns the number of batches currently held, for tests and
// diagnostics.
func (t *Trace[K]) NumLevels() int { return len(t.levels) }

// Append adds a new batch (newest level) and runs budgeted compaction.
// The batch is dropped immediately if empty, preserving "empty batches
// never appear".
func (t *Trace[K]) Append(b *batch.Batch[K]) {
	if b == nil || b.Empty() {
		return
	}
	t.levels = append(t.levels, b)
	t.memo = nil
	t.compact(time.Now)
}

// Add unions another trace's content into this one: every non-empty level
// of other is appended, then compaction runs once.
func (t *Trace[K]) Add(other *Trace[K]) {
	for _, lvl := range other.levels {
		if lvl.Empty() {
			continue
		}
		t.levels = append(t.levels, lvl)
	}
	t.memo = nil
	t.compact(time.Now)
}

// Negate returns a new trace with every level negated, same level count
// and ordering (no compaction needed since negation can't merge levels).
func (t *Trace[K]) Negate() *Trace[K] {
	out := &Trace[K]{maxBatches: t.maxBatches, compactBudget: t.compactBudget}
	out.levels = make([]*batch.Batch[K], len(t.levels))
	for i, lvl := range t.levels {
		out.levels[i] = batch.Negate(lvl)
	}
	return out
}

// ScalarMul returns a new trace with every level scalar-multiplied. A zero
// scalar yields an empty trace.
func (t *Trace[K]) ScalarMul(s algebra.Weight) *Trace[K] {
	out := &Trace[K]{maxBatches: t.maxBatches, compactBudget: t.compactBudget}
	if s == 0 {
		return out
	}
	out.levels = make([]*batch.Batch[K], 0, len(t.levels))
	for _, lvl := range t.levels {
		scaled := batch.ScalarMul(lvl, s)
		if !scaled.Empty() {
			out.levels = append(out.levels, scaled)
		}
	}
	return out
}

// compact merges the two oldest levels pairwise while more than
// maxBatches levels remain and the time budget has not elapsed. clock is
// injected so tests can make compaction deterministic.
func (t *Trace[K]) compact(clock func() time.Time) {
	if len(t.levels) <= t.maxBatches {
		return
	}
	deadline := clock().Add(t.compactBudget)
	for len(t.levels) > t.maxBatches && clock().Before(deadline) {
		merged := batch.Union(t.levels[0], t.levels[1])
		rest := append([]*batch.Batch[K]{}, t.levels[2:]...)
		t.levels = append([]*batch.Batch[K]{merged}, rest...)
	}
}

// CompactFully ignores the time budget and merges down to exactly one
// level (or zero, if the trace is empty). Used by callers that need a
// deterministic fully-merged state regardless of wall-clock timing.
func (t *Trace[K]) CompactFully() {
	for len(t.levels) > 1 {
		merged := batch.Union(t.levels[0], t.levels[1])
		t.levels = append([]*batch.Batch[K]{merged}, t.levels[2:]...)
	}
	t.memo = nil
}

// ToSeq returns the memoized k-way merge of all levels, computing and
// caching it first if necessary. Per spec.md §8, this always equals the
// multiset sum of the contained batches.
func (t *Trace[K]) ToSeq() *batch.Batch[K] {
	if t.memo != nil {
		return t.memo
	}
	merged := mergeAll(t.levels)
	t.memo = merged
	return merged
}

// Get performs a point lookup by summing the weight contributed by every
// level (each level itself uses binary search).
func (t *Trace[K]) Get(key K) (algebra.Weight, bool) {
	var sum algebra.Weight
	found := false
	for _, lvl := range t.levels {
		if w, ok := batch.Get(lvl, key); ok {
			sum += w
			found = true
		}
	}
	if sum == 0 {
		return 0, false
	}
	return sum, found
}

func mergeAll[K algebra.Ordered](levels []*batch.Batch[K]) *batch.Batch[K] {
	if len(levels) == 0 {
		return &batch.Batch[K]{}
	}
	acc := levels[0]
	for _, lvl := range levels[1:] {
		acc = batch.Union(acc, lvl)
	}
	return acc
}
