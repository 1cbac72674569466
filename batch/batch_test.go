package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dbspgo/dbsp/algebra"
)

func TestBuildConsolidatesAndSorts(t *testing.T) {
	in := []Pair[int]{
		{Key: 3, Weight: 1},
		{Key: 1, Weight: 2},
		{Key: 1, Weight: -1},
		{Key: 2, Weight: 5},
		{Key: 3, Weight: -1},
	}
	b := Build(in)
	require.Equal(t, 2, b.Len())
	k0, w0 := b.At(0)
	k1, w1 := b.At(1)
	assert.Equal(t, 1, k0)
	assert.Equal(t, algebra.Weight(1), w0)
	assert.Equal(t, 2, k1)
	assert.Equal(t, algebra.Weight(5), w1)
}

func TestBuildDropsZeroWeights(t *testing.T) {
	b := Build([]Pair[int]{{Key: 1, Weight: 5}, {Key: 1, Weight: -5}})
	assert.True(t, b.Empty())
}

func TestUnion(t *testing.T) {
	a := Build([]Pair[int]{{Key: 1, Weight: 2}, {Key: 2, Weight: -1}})
	b := Build([]Pair[int]{{Key: 2, Weight: 1}, {Key: 3, Weight: 3}})
	got := Union(a, b)
	want := Build([]Pair[int]{{Key: 1, Weight: 2}, {Key: 3, Weight: 3}})
	assert.True(t, Equal(got, want))
}

func TestNegateIsInvolution(t *testing.T) {
	a := Build([]Pair[int]{{Key: 1, Weight: 2}, {Key: 2, Weight: -7}})
	assert.True(t, Equal(a, Negate(Negate(a))))
}

func TestGet(t *testing.T) {
	a := Build([]Pair[string]{{Key: "x", Weight: 1}, {Key: "y", Weight: 2}})
	w, ok := Get(a, "y")
	require.True(t, ok)
	assert.Equal(t, algebra.Weight(2), w)
	_, ok = Get(a, "z")
	assert.False(t, ok)
}

func TestScalarMulZeroEmpties(t *testing.T) {
	a := Build([]Pair[int]{{Key: 1, Weight: 3}})
	assert.True(t, ScalarMul(a, 0).Empty())
}

// TestBatchCanonicalityProperty checks spec.md §8's batch canonicality
// invariant across random inputs: keys strictly increasing, and
// re-consolidating an already-consolidated batch is a no-op.
func TestBatchCanonicalityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(rt, "n")
		pairs := make([]Pair[int], n)
		for i := range pairs {
			pairs[i] = Pair[int]{
				Key:    rapid.IntRange(-50, 50).Draw(rt, "k"),
				Weight: algebra.Weight(rapid.IntRange(-5, 5).Draw(rt, "w")),
			}
		}
		b := Build(pairs)
		ap := b.Pairs()
		for i := 1; i < len(ap); i++ {
			if ap[i-1].Key >= ap[i].Key {
				rt.Fatalf("keys not strictly increasing at %d: %v >= %v", i, ap[i-1].Key, ap[i].Key)
			}
		}
		for _, p := range ap {
			if p.Weight == 0 {
				rt.Fatalf("zero weight materialized for key %v", p.Key)
			}
		}
		reconsolidated := Build(ap)
		if !Equal(b, reconsolidated) {
			rt.Fatalf("consolidation is not idempotent")
		}
	})
}

// TestUnionGroupLaws checks associativity/commutativity of Union and that
// Negate provides additive inverses, per spec.md §8.
func TestUnionGroupLaws(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		gen := rapid.SliceOfN(rapid.IntRange(-20, 20), 0, 30)
		wgen := rapid.SliceOfN(rapid.IntRange(-4, 4), 0, 30)
		mk := func(keys, ws []int) *Batch[int] {
			n := len(keys)
			if len(ws) < n {
				n = len(ws)
			}
			pairs := make([]Pair[int], n)
			for i := 0; i < n; i++ {
				pairs[i] = Pair[int]{Key: keys[i], Weight: algebra.Weight(ws[i])}
			}
			return Build(pairs)
		}
		a := mk(gen.Draw(rt, "ak"), wgen.Draw(rt, "aw"))
		b := mk(gen.Draw(rt, "bk"), wgen.Draw(rt, "bw"))
		c := mk(gen.Draw(rt, "ck"), wgen.Draw(rt, "cw"))

		if !Equal(Union(a, b), Union(b, a)) {
			rt.Fatalf("union not commutative")
		}
		if !Equal(Union(Union(a, b), c), Union(a, Union(b, c))) {
			rt.Fatalf("union not associative")
		}
		if !Union(a, Negate(a)).Empty() {
			rt.Fatalf("a + (-a) != 0")
		}
	})
}
