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

// Package zset implements the adaptive Z-set: a finite map from elements
// to non-zero signed weights, backed by one of four representations
// (Hash, Fast, Batch, Adaptive) selected once at construction, per
// spec.md §3/§4.3.
package zset

import (
	"time"

	"github.com/dbspgo/dbsp/algebra"
)

// Backend names the concrete representation behind a ZSet, reported by
// ZSet.Backend() for diagnostics and tests.
type Backend string

const (
	BackendHash     Backend = "Hash"
	BackendFast     Backend = "Fast"
	BackendBatch    Backend = "Batch"
	BackendAdaptive Backend = "Adaptive"
)

// Config collects the construction-time parameters from spec.md §6: the
// backend choice plus the Adaptive thresholds (used only when
// Backend == BackendAdaptive).
type Config struct {
	Backend Backend

	// SmallThreshold is adaptive.N: size under which the Small sorted
	// vector is used directly (default 512).
	SmallThreshold int
	// FlushSize is adaptive.S: combined size that triggers a flush to the
	// Batch spine (default 65536).
	FlushSize int
	// FlushInterval is adaptive.T_ms: elapsed time since last flush that
	// triggers a flush (default 20ms).
	FlushInterval time.Duration
	// MaxBatches is adaptive.R: trace compaction threshold (default 4).
	MaxBatches int
	// CompactBudget is adaptive.compactBudgetMs (default 2ms).
	CompactBudget time.Duration
	// Registry supplies arranged-view subscriber counts for flush
	// threshold tightening; nil disables the tightening behavior.
	Registry *ArrangementRegistry
}

// DefaultConfig returns the spec.md §6 defaults, backend Hash.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendHash,
		SmallThreshold: 512,
		FlushSize:      65536,
		FlushInterval:  20 * time.Millisecond,
		MaxBatches:     4,
		CompactBudget:  2 * time.Millisecond,
	}
}

// ZSet is the common contract satisfied by all four backends. Algebraic
// operations (Add, Negate, ScalarMul) are pure and return a new value;
// Insert/Remove are ingestion sugar that may mutate the receiver's
// internal overlay in place (see the Adaptive backend's single-owner
// memtable window in spec.md "Lifecycles").
type ZSet[K algebra.Ordered] interface {
	algebra.Group[ZSet[K]]

	// Insert adds one occurrence of k (weight +1) and returns the
	// receiver for chaining.
	Insert(k K) ZSet[K]
	// Remove adds one negative occurrence of k (weight -1).
	Remove(k K) ZSet[K]

	// Filter returns a new Z-set containing only keys matching pred.
	Filter(pred func(K) bool) ZSet[K]

	// ForEach enumerates (key, weight) pairs in an unspecified but
	// deterministic-per-call order; no zero weight is ever yielded. The
	// callback's return value controls early termination (false stops
	// iteration).
	ForEach(f func(k K, w algebra.Weight) bool)

	// Len returns the number of distinct (non-zero-weight) keys.
	Len() int

	// Get returns the weight at k, or (0, false) if absent.
	Get(k K) (algebra.Weight, bool)

	// Backend reports which representation is in use.
	Backend() Backend

	// Equal reports multiset equality of the consolidated logical views.
	Equal(other ZSet[K]) bool

	// SampledHash returns a bounded-cost hash over the first few
	// consolidated pairs, per spec.md §4.3 "Equality and hash".
	SampledHash() uint64
}

// MapKeys transforms every key of z with f, re-consolidating when the
// mapping is not injective. A free function (not a ZSet method) since the
// result type may differ from K.
func MapKeys[K, K2 algebra.Ordered](z ZSet[K], f func(K) K2) ZSet[K2] {
	out := NewHash[K2]()
	z.ForEach(func(k K, w algebra.Weight) bool {
		out.addWeight(f(k), w)
		return true
	})
	return out
}

// Collect drains z into a plain map, useful for tests and for seeding
// another representation.
func Collect[K algebra.Ordered](z ZSet[K]) map[K]algebra.Weight {
	out := make(map[K]algebra.Weight, z.Len())
	z.ForEach(func(k K, w algebra.Weight) bool {
		out[k] = w
		return true
	})
	return out
}

// New constructs a ZSet using the given configuration, dispatching to the
// backend named by cfg.Backend.
func New[K algebra.Ordered](cfg Config) ZSet[K] {
	switch cfg.Backend {
	case BackendFast:
		return NewFast[K]()
	case BackendBatch:
		return NewBatchBacked[K](cfg.MaxBatches, cfg.CompactBudget)
	case BackendAdaptive:
		return NewAdaptive[K](cfg)
	default:
		return NewHash[K]()
	}
}
