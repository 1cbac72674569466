package wal

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// Log is a read-only recovered view over a WAL file: every intact record
// in order, plus the byte offset of the last fully intact record.
type Log struct {
	Records       []Record
	GoodOffset    int64 // byte offset just past the last intact record
	TotalLength   int64 // actual file length, may exceed GoodOffset
}

// Open reads and validates every record in path, stopping (without
// erroring) at the first CRC mismatch or truncated trailing record, per
// spec.md §4.11 "Recovery". A shared lock is held for the duration of the
// read, per spec.md §5.
func Open(path string) (*Log, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, errors.Wrap(err, "wal: acquire read lock")
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "wal: open file")
	}
	defer f.Close()

	header := make([]byte, len(Magic))
	if _, err := io.ReadFull(f, header); err != nil || string(header) != Magic {
		return nil, ErrBadMagic
	}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	log := &Log{TotalLength: info.Size()}
	offset := int64(len(Magic))
	for {
		var lenBuf [4]byte
		n, err := io.ReadFull(f, lenBuf[:])
		if err == io.EOF || (err == io.ErrUnexpectedEOF && n == 0) {
			break
		}
		if err != nil {
			break // truncated length prefix
		}
		payloadLen := binary.LittleEndian.Uint32(lenBuf[:])

		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(f, payload); err != nil {
			break // truncated payload
		}

		var crcBuf [4]byte
		if _, err := io.ReadFull(f, crcBuf[:]); err != nil {
			break // truncated CRC trailer
		}
		want := binary.LittleEndian.Uint32(crcBuf[:])
		got := crc32.Checksum(payload, crcTable)
		if want != got {
			break
		}

		rec, err := decodePayload(payload)
		if err != nil {
			break
		}
		log.Records = append(log.Records, rec)
		offset += 4 + int64(payloadLen) + 4
	}
	log.GoodOffset = offset
	return log, nil
}

// GetLastCommittedEpoch returns the epoch of the last valid EndEpoch
// record, or (0, false) if none.
func (l *Log) GetLastCommittedEpoch() (int64, bool) {
	for i := len(l.Records) - 1; i >= 0; i-- {
		if l.Records[i].Type == EndEpoch {
			return l.Records[i].Epoch, true
		}
	}
	return 0, false
}

// GetLatestCheckpoint returns the last CheckpointCreated record, or
// (Record{}, false) if none.
func (l *Log) GetLatestCheckpoint() (Record, bool) {
	for i := len(l.Records) - 1; i >= 0; i-- {
		if l.Records[i].Type == CheckpointCreated {
			return l.Records[i], true
		}
	}
	return Record{}, false
}

// TruncateToLastGoodRecord truncates path to l.GoodOffset, discarding any
// trailing corrupt or partial record.
func (l *Log) TruncateToLastGoodRecord(path string) error {
	if l.GoodOffset >= l.TotalLength {
		return nil
	}
	return os.Truncate(path, l.GoodOffset)
}
