package zset

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dbspgo/dbsp/algebra"
)

func allBackends() []Config {
	return []Config{
		{Backend: BackendHash},
		{Backend: BackendFast},
		{Backend: BackendBatch, MaxBatches: 4, CompactBudget: time.Millisecond},
		{Backend: BackendAdaptive, SmallThreshold: 4, FlushSize: 8, FlushInterval: time.Hour},
	}
}

func collect[K algebra.Ordered](z ZSet[K]) map[K]algebra.Weight {
	m := map[K]algebra.Weight{}
	z.ForEach(func(k K, w algebra.Weight) bool { m[k] = w; return true })
	return m
}

// TestScenario1AdditionAndInverse realizes spec.md §8 scenario 1 verbatim
// for every backend: a={(1,+2),(2,-1)}, b={(2,+1),(3,+3)},
// a+b == {(1,+2),(3,+3)}, and a+(-a) == {}.
func TestScenario1AdditionAndInverse(t *testing.T) {
	for _, cfg := range allBackends() {
		cfg := cfg
		t.Run(string(cfg.Backend), func(t *testing.T) {
			a := New[int](cfg)
			a = a.Insert(1).Insert(1) // weight 2 at key 1
			a = a.Remove(2)           // weight -1 at key 2

			b := New[int](cfg)
			b = b.Insert(2) // weight 1 at key 2
			b = b.Insert(3).Insert(3).Insert(3)

			sum := a.Add(b)
			require.Equal(t, map[int]algebra.Weight{1: 2, 3: 3}, collect[int](sum))

			zero := a.Add(a.Negate())
			require.Equal(t, 0, zero.Len())
		})
	}
}

func TestBackendReportsItself(t *testing.T) {
	require.Equal(t, BackendHash, New[int](Config{Backend: BackendHash}).Backend())
	require.Equal(t, BackendFast, New[int](Config{Backend: BackendFast}).Backend())
	require.Equal(t, BackendBatch, New[int](Config{Backend: BackendBatch}).Backend())
	require.Equal(t, BackendAdaptive, New[int](Config{Backend: BackendAdaptive}).Backend())
}

func TestEqualAcrossBackendsWithSameContent(t *testing.T) {
	h := New[int](Config{Backend: BackendHash}).Insert(1).Insert(2).Remove(3)
	f := New[int](Config{Backend: BackendFast}).Insert(1).Insert(2).Remove(3)
	require.True(t, h.Equal(f))
	require.True(t, f.Equal(h))
	require.Equal(t, h.SampledHash(), f.SampledHash())
}

// TestConsolidatedContentMatchesAcrossAllBackends builds the same
// operation sequence on every backend and compares the consolidated
// (K -> weight) view with cmp.Diff rather than require.Equal, so a
// mismatch names exactly which keys diverge instead of just "not equal".
func TestConsolidatedContentMatchesAcrossAllBackends(t *testing.T) {
	build := func(cfg Config) map[int]algebra.Weight {
		z := New[int](cfg)
		z = z.Insert(1).Insert(1).Insert(2).Remove(3).Insert(4).Remove(4)
		return collect(z)
	}

	backends := allBackends()
	want := build(backends[0])
	for _, cfg := range backends[1:] {
		got := build(cfg)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s backend's consolidated content differs from %s (-want +got):\n%s", cfg.Backend, backends[0].Backend, diff)
		}
	}
}

func TestMapKeysAndCollect(t *testing.T) {
	z := New[int](Config{Backend: BackendHash}).Insert(1).Insert(2).Insert(2)
	mapped := MapKeys[int, string](z, func(k int) string {
		if k == 1 {
			return "one"
		}
		return "two"
	})
	m := Collect[string](mapped)
	require.Equal(t, map[string]algebra.Weight{"one": 1, "two": 2}, m)
}

func TestAdaptiveMigratesSmallToFastAndFlushes(t *testing.T) {
	cfg := Config{Backend: BackendAdaptive, SmallThreshold: 2, FlushSize: 3, FlushInterval: time.Hour}
	z := New[int](cfg)
	for i := 0; i < 10; i++ {
		z = z.Insert(i)
	}
	require.Equal(t, 10, z.Len())
	for i := 0; i < 10; i++ {
		w, ok := z.Get(i)
		require.True(t, ok)
		require.Equal(t, algebra.Weight(1), w)
	}
}

func TestAdaptiveTightensThresholdsUnderOutstandingArrangements(t *testing.T) {
	reg := NewArrangementRegistry()
	cfg := Config{Backend: BackendAdaptive, SmallThreshold: 100, FlushSize: 8, FlushInterval: time.Hour, Registry: reg}
	z := New[int](cfg).(*AdaptiveZSet[int])

	tok := reg.Arrange()
	for i := 0; i < 3; i++ {
		z.addWeight(i, 1)
	}
	require.True(t, z.spine.NumLevels() > 0, "tightened size threshold of 2 should have forced a flush to the spine")
	tok.Drop()
	require.Equal(t, int64(0), reg.Outstanding())
}

func TestGroupLawsAcrossBackends(t *testing.T) {
	for _, cfg := range allBackends() {
		cfg := cfg
		t.Run(string(cfg.Backend), func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				keys := rapid.SliceOfN(rapid.IntRange(0, 20), 0, 30).Draw(rt, "keys")
				a := New[int](cfg)
				b := New[int](cfg)
				for i, k := range keys {
					if i%2 == 0 {
						a = a.Insert(k)
					} else {
						b = b.Insert(k)
					}
				}
				lhs := collect[int](a.Add(b))
				rhs := collect[int](b.Add(a))
				require.Equal(t, lhs, rhs, "addition must commute")

				zero := collect[int](a.Add(a.Negate()))
				require.Empty(t, zero, "a + (-a) must be empty")
			})
		})
	}
}
