package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopoSortLinearChain(t *testing.T) {
	order, err := TopoSort([]int{0, 1, 2}, map[int][]int{
		1: {0},
		2: {1},
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestTopoSortDeterministicTieBreak(t *testing.T) {
	// 0,1,2 all independent; 3 depends on both 1 and 2. Ties among ready
	// nodes must break by insertion order, not discovery order.
	order, err := TopoSort([]int{2, 0, 1, 3}, map[int][]int{
		3: {1, 2},
	})
	require.NoError(t, err)
	require.Equal(t, []int{2, 0, 1, 3}, order)
}

func TestTopoSortDiamond(t *testing.T) {
	// 0 -> {1,2} -> 3
	order, err := TopoSort([]int{0, 1, 2, 3}, map[int][]int{
		1: {0},
		2: {0},
		3: {1, 2},
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestTopoSortDetectsCycle(t *testing.T) {
	_, err := TopoSort([]int{0, 1}, map[int][]int{
		0: {1},
		1: {0},
	})
	require.ErrorIs(t, err, ErrCycle)
}

func TestTopoSortEmpty(t *testing.T) {
	order, err := TopoSort[int](nil, nil)
	require.NoError(t, err)
	require.Empty(t, order)
}

func TestTopoSortIndependentNodesKeepInsertionOrder(t *testing.T) {
	order, err := TopoSort([]string{"c", "a", "b"}, map[string][]string{})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b"}, order)
}
