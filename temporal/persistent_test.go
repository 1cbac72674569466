package temporal

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/dbspgo/dbsp/algebra"
	"github.com/dbspgo/dbsp/kv"
)

func TestPersistentTraceSurvivesReopenAgainstLSMStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := kv.DefaultLSMConfig()

	store, err := kv.NewLSMStore[Time, string](fs, "/trace", cfg)
	require.NoError(t, err)
	pt := NewPersistent[string, string](store)

	require.NoError(t, pt.InsertBatch(1, []Update[string, string]{{K: "k", V: "v", Delta: 3}}))
	require.NoError(t, pt.InsertBatch(2, []Update[string, string]{{K: "k2", V: "v2", Delta: 1}}))
	store.MoveMutableSegmentForward()

	// Simulate a process restart: open a fresh LSMStore/PersistentTrace
	// pair against the same filesystem and directory, with no shared
	// in-memory state at all.
	reopenedStore, err := kv.NewLSMStore[Time, string](fs, "/trace", cfg)
	require.NoError(t, err)
	reopened, err := OpenPersistent[string, string](reopenedStore)
	require.NoError(t, err)

	require.Equal(t, []Snapshot[string, string]{{K: "k", V: "v", Weight: 3}}, reopened.QueryAtTime(1))
	snaps := reopened.QueryAtTime(2)
	require.Len(t, snaps, 2)
}

func TestPersistentTraceDeleteTombstonesSurviveReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := kv.DefaultLSMConfig()

	store, err := kv.NewLSMStore[Time, string](fs, "/trace2", cfg)
	require.NoError(t, err)
	pt := NewPersistent[string, string](store)

	require.NoError(t, pt.InsertBatch(1, []Update[string, string]{{K: "k", V: "v", Delta: 1}}))
	require.NoError(t, pt.InsertBatch(1, []Update[string, string]{{K: "k", V: "v", Delta: -1}}))
	store.MoveMutableSegmentForward()
	store.StartMergeOperation().Join()

	reopenedStore, err := kv.NewLSMStore[Time, string](fs, "/trace2", cfg)
	require.NoError(t, err)
	reopened, err := OpenPersistent[string, string](reopenedStore)
	require.NoError(t, err)
	require.Empty(t, reopened.QueryAtTime(1))
}

func TestPersistentTraceMaintainPersistsRebucketedRows(t *testing.T) {
	store := kv.NewMemStore[Time, string]()
	pt := NewPersistent[int, int](store)

	require.NoError(t, pt.InsertBatch(1, []Update[int, int]{{K: 1, V: 1, Delta: 1}}))
	require.NoError(t, pt.InsertBatch(2, []Update[int, int]{{K: 1, V: 1, Delta: 1}}))
	require.NoError(t, pt.InsertBatch(20, []Update[int, int]{{K: 2, V: 2, Delta: 1}}))

	require.NoError(t, pt.Maintain(10, 10))

	reopened, err := OpenPersistent[int, int](store)
	require.NoError(t, err)
	require.Equal(t, []Snapshot[int, int]{{K: 1, V: 1, Weight: 2}}, reopened.QueryAtTime(9))

	var total algebra.Weight
	for _, s := range reopened.QueryAtTime(20) {
		total += s.Weight
	}
	require.Equal(t, algebra.Weight(3), total)
}
