package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndRecoverRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")
	w, err := Create(path, nil)
	require.NoError(t, err)

	require.NoError(t, w.Append(Record{Type: BeginEpoch, Epoch: 1}))
	require.NoError(t, w.Append(Record{Type: EndEpoch, Epoch: 1}))
	require.NoError(t, w.Append(Record{Type: CheckpointCreated, Epoch: 1, Name: "cp1"}))
	require.NoError(t, w.Close())

	log, err := Open(path)
	require.NoError(t, err)
	require.Len(t, log.Records, 3)

	epoch, ok := log.GetLastCommittedEpoch()
	require.True(t, ok)
	require.Equal(t, int64(1), epoch)

	cp, ok := log.GetLatestCheckpoint()
	require.True(t, ok)
	require.Equal(t, "cp1", cp.Name)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wal")
	require.NoError(t, os.WriteFile(path, []byte("NOTAWAL!"), 0o644))
	_, err := Open(path)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestRecoveryStopsAtCorruptTrailingRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.wal")
	w, err := Create(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Type: BeginEpoch, Epoch: 1}))
	require.NoError(t, w.Append(Record{Type: EndEpoch, Epoch: 1}))
	require.NoError(t, w.Close())

	// Corrupt the last 4 bytes (part of the final record's CRC trailer).
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	info, err := f.Stat()
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xFF, 0xFF, 0xFF, 0xFF}, info.Size()-4)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	log, err := Open(path)
	require.NoError(t, err)
	require.Len(t, log.Records, 1)
	require.Less(t, log.GoodOffset, log.TotalLength)
}

func TestTruncateToLastGoodRecordDropsCorruptTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.wal")
	w, err := Create(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Type: BeginEpoch, Epoch: 1}))
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3}) // partial record, no complete length prefix
	require.NoError(t, err)
	require.NoError(t, f.Close())

	log, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, log.TruncateToLastGoodRecord(path))

	log2, err := Open(path)
	require.NoError(t, err)
	require.Len(t, log2.Records, 1)
	require.Equal(t, log.GoodOffset, log2.TotalLength)
}

func TestOpenForAppendContinuesExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.wal")
	w, err := Create(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Type: BeginEpoch, Epoch: 1}))
	require.NoError(t, w.Close())

	w2, err := OpenForAppend(path, nil)
	require.NoError(t, err)
	require.NoError(t, w2.Append(Record{Type: EndEpoch, Epoch: 1}))
	require.NoError(t, w2.Close())

	log, err := Open(path)
	require.NoError(t, err)
	require.Len(t, log.Records, 2)
}
