package ixzset

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/zset"
)

// TestScenario2InnerJoin realizes spec.md §8 scenario 2 verbatim.
func TestScenario2InnerJoin(t *testing.T) {
	cfg := zset.Config{Backend: zset.BackendHash}

	leftFlat := NewFlat[int, string]()
	leftFlat.Insert(1, "x")
	leftFlat.Insert(2, "y")
	left := GroupBy[int, string](cfg, leftFlat)

	rightFlat := NewFlat[int, int]()
	rightFlat.Insert(1, 10)
	rightFlat.Insert(2, 20)
	rightFlat.Insert(2, 30)
	rightFlat.Insert(2, 30)
	right := GroupBy[int, int](cfg, rightFlat)

	joined := InnerJoin[int, string, int, string](cfg, left, right, func(l string, r int) string {
		return fmt.Sprintf("%s,%d", l, r)
	})

	require.Equal(t, 2, joined.Len())
	got1 := zset.Collect[string](joined.Get(1))
	require.Equal(t, map[string]algebra.Weight{"x,10": 1}, got1)
	got2 := zset.Collect[string](joined.Get(2))
	require.Equal(t, map[string]algebra.Weight{"y,20": 1, "y,30": 2}, got2)
}

func TestRoundTripToFromZSet(t *testing.T) {
	cfg := zset.Config{Backend: zset.BackendHash}
	ix := New[int, string](cfg)
	ix.InsertPayload(1, "a")
	ix.InsertPayload(1, "b")
	ix.InsertPayload(2, "c")

	flat := ToZSet[int, string](ix)
	back := FromZSet[int, string](cfg, flat)

	require.Equal(t, ix.Len(), back.Len())
	for _, k := range ix.Keys() {
		require.True(t, ix.Get(k).Equal(back.Get(k)))
	}
}

func TestEmptyInnerZSetNeverStored(t *testing.T) {
	cfg := zset.Config{Backend: zset.BackendHash}
	ix := New[int, string](cfg)
	ix.InsertPayload(1, "a")
	ix.RemovePayload(1, "a")
	require.Equal(t, 0, ix.Len())
	require.Nil(t, ix.Get(1))
}

func TestFilterByKeyAndValue(t *testing.T) {
	cfg := zset.Config{Backend: zset.BackendHash}
	ix := New[int, string](cfg)
	ix.InsertPayload(1, "a")
	ix.InsertPayload(2, "b")
	ix.InsertPayload(3, "c")

	byKey := FilterByKey[int, string](ix, func(k int) bool { return k != 2 })
	require.Equal(t, 2, byKey.Len())

	byVal := FilterByValue[int, string](ix, func(v string) bool { return v != "c" })
	require.Equal(t, 2, byVal.Len())
}

func TestAddAndNegate(t *testing.T) {
	cfg := zset.Config{Backend: zset.BackendHash}
	a := New[int, string](cfg)
	a.InsertPayload(1, "x")
	b := New[int, string](cfg)
	b.InsertPayload(1, "y")
	b.InsertPayload(2, "z")

	sum := Add[int, string](a, b)
	require.Equal(t, 2, sum.Len())
	require.Equal(t, 2, sum.Get(1).Len())

	neg := Negate[int, string](sum)
	zero := Add[int, string](sum, neg)
	require.Equal(t, 0, zero.Len())
}

func TestMapKeysMergesCollisions(t *testing.T) {
	cfg := zset.Config{Backend: zset.BackendHash}
	ix := New[int, string](cfg)
	ix.InsertPayload(1, "a")
	ix.InsertPayload(2, "a")
	ix.InsertPayload(3, "b")

	mapped := MapKeys[int, string, string](ix, func(k int) string {
		if k%2 == 0 {
			return "even"
		}
		return "odd"
	})
	require.Equal(t, 2, mapped.Len())
	require.Equal(t, 1, mapped.Get("even").Len())
	require.Equal(t, 2, mapped.Get("odd").Len())
}
