package zset

import "sync/atomic"

// ArrangementRegistry tracks how many arranged views are outstanding for a
// given adaptive Z-set. spec.md §9 notes the source keeps this count in
// process-global state; this module instead hands out a per-instance
// registry so tests stay deterministic and independent adaptive sets never
// interfere with each other's flush thresholds.
type ArrangementRegistry struct {
	count atomic.Int64
}

// NewArrangementRegistry returns a registry with zero outstanding views.
func NewArrangementRegistry() *ArrangementRegistry {
	return &ArrangementRegistry{}
}

// Outstanding reports the number of live Arrangement tokens.
func (r *ArrangementRegistry) Outstanding() int64 {
	if r == nil {
		return 0
	}
	return r.count.Load()
}

// Arrange returns a new ref-counted Arrangement token, incrementing the
// registry's outstanding count.
func (r *ArrangementRegistry) Arrange() *Arrangement {
	r.count.Add(1)
	return &Arrangement{registry: r}
}

// Arrangement is a read-mostly snapshot token (spec.md glossary "Arranged
// view"); Drop must be called exactly once to release it.
type Arrangement struct {
	registry *ArrangementRegistry
	dropped  atomic.Bool
}

// Drop releases the token, decrementing the registry's outstanding count.
// Idempotent: a second call is a no-op.
func (a *Arrangement) Drop() {
	if a == nil || a.dropped.Swap(true) {
		return
	}
	a.registry.count.Add(-1)
}
