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

// Package checkpoint implements circuit state snapshots per spec.md
// §4.11: a manifest listing per-operator state files, with a CRC-32
// framed record format and a legacy no-CRC compatibility path.
package checkpoint

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/dbspgo/dbsp/circuit"
	"github.com/dbspgo/dbsp/wal"
)

// MagicV2 is the current manifest header: framed with a trailing CRC.
const MagicV2 = "DBSPCP2"

// MagicV1Legacy is accepted on read for backward compatibility: the same
// layout but with no CRC trailer, per spec.md §4.11.
const MagicV1Legacy = "DBSPCP1"

// ErrBadMagic is returned when a manifest begins with neither magic.
var ErrBadMagic = errors.New("checkpoint: unknown manifest magic")

// ErrCorrupt is returned when a v2 manifest's CRC does not match.
var ErrCorrupt = errors.New("checkpoint: manifest CRC mismatch")

// OperatorEntry is one operator's recorded state file within a manifest.
type OperatorEntry struct {
	NodeID   circuit.NodeId
	FileName string
	Size     int64
}

// Manifest describes one checkpoint's contents.
type Manifest struct {
	CircuitID circuit.CircuitId
	Epoch     int64
	Name      string
	Operators []OperatorEntry
}

func dirFor(basePath string, epoch int64) string {
	return filepath.Join(basePath, fmt.Sprintf("cp_%d", epoch))
}

func manifestPath(basePath string, epoch int64) string {
	return filepath.Join(dirFor(basePath, epoch), "manifest.bin")
}

func opFileName(nodeID circuit.NodeId) string {
	return fmt.Sprintf("op_%d.bin", nodeID)
}

func encodeManifest(m Manifest) []byte {
	var buf []byte
	var i64 [8]byte
	binary.LittleEndian.PutUint64(i64[:], uint64(m.CircuitID))
	buf = append(buf, i64[:]...)
	binary.LittleEndian.PutUint64(i64[:], uint64(m.Epoch))
	buf = append(buf, i64[:]...)

	nameBytes := []byte(m.Name)
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(len(nameBytes)))
	buf = append(buf, u16[:]...)
	buf = append(buf, nameBytes...)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(m.Operators)))
	buf = append(buf, u32[:]...)

	for _, op := range m.Operators {
		binary.LittleEndian.PutUint64(i64[:], uint64(op.NodeID))
		buf = append(buf, i64[:]...)
		fnBytes := []byte(op.FileName)
		binary.LittleEndian.PutUint16(u16[:], uint16(len(fnBytes)))
		buf = append(buf, u16[:]...)
		buf = append(buf, fnBytes...)
		binary.LittleEndian.PutUint64(i64[:], uint64(op.Size))
		buf = append(buf, i64[:]...)
	}
	return buf
}

func decodeManifest(payload []byte) (Manifest, error) {
	r := &cursor{data: payload}
	m := Manifest{}
	circuitID, err := r.readI64()
	if err != nil {
		return Manifest{}, err
	}
	m.CircuitID = circuit.CircuitId(circuitID)
	epoch, err := r.readI64()
	if err != nil {
		return Manifest{}, err
	}
	m.Epoch = epoch
	name, err := r.readString()
	if err != nil {
		return Manifest{}, err
	}
	m.Name = name
	count, err := r.readU32()
	if err != nil {
		return Manifest{}, err
	}
	for i := uint32(0); i < count; i++ {
		nodeID, err := r.readI64()
		if err != nil {
			return Manifest{}, err
		}
		fileName, err := r.readString()
		if err != nil {
			return Manifest{}, err
		}
		size, err := r.readI64()
		if err != nil {
			return Manifest{}, err
		}
		m.Operators = append(m.Operators, OperatorEntry{NodeID: circuit.NodeId(nodeID), FileName: fileName, Size: size})
	}
	return m, nil
}

type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) readI64() (int64, error) {
	if len(c.data)-c.pos < 8 {
		return 0, errors.New("checkpoint: truncated i64")
	}
	v := int64(binary.LittleEndian.Uint64(c.data[c.pos : c.pos+8]))
	c.pos += 8
	return v, nil
}

func (c *cursor) readU32() (uint32, error) {
	if len(c.data)-c.pos < 4 {
		return 0, errors.New("checkpoint: truncated u32")
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos : c.pos+4])
	c.pos += 4
	return v, nil
}

func (c *cursor) readString() (string, error) {
	if len(c.data)-c.pos < 2 {
		return "", errors.New("checkpoint: truncated string length")
	}
	n := int(binary.LittleEndian.Uint16(c.data[c.pos : c.pos+2]))
	c.pos += 2
	if len(c.data)-c.pos < n {
		return "", errors.New("checkpoint: truncated string body")
	}
	s := string(c.data[c.pos : c.pos+n])
	c.pos += n
	return s, nil
}

// Store creates and restores checkpoints under a base directory, logging
// through zap and appending WAL records for each create/restore (spec.md
// §4.11).
type Store struct {
	fs   afero.Fs
	base string
	log  *zap.Logger
	wal  *wal.Writer
}

// New constructs a Store rooted at base. walWriter may be nil if WAL
// integration is not desired (e.g. in tests exercising checkpoint logic
// alone).
func New(fs afero.Fs, base string, walWriter *wal.Writer, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{fs: fs, base: base, log: logger, wal: walWriter}
}

// Create serializes every Stateful operator in def, writes its bytes to
// cp_{epoch}/op_{nodeId}.bin, writes the manifest with a CRC trailer, and
// appends a CheckpointCreated WAL record.
func (s *Store) Create(def *circuit.CircuitDefinition, epoch int64, name string) (Manifest, error) {
	dir := dirFor(s.base, epoch)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, errors.Wrap(err, "checkpoint: mkdir")
	}

	m := Manifest{CircuitID: def.ID, Epoch: epoch, Name: name}
	for _, n := range def.InsertionOrder {
		op := def.Operators[n]
		st, ok := op.Op.(circuit.Stateful)
		if !ok {
			continue
		}
		data, err := st.SerializeState()
		if err != nil {
			return Manifest{}, errors.Wrapf(err, "checkpoint: serialize node %d", n)
		}
		fileName := opFileName(n)
		if err := afero.WriteFile(s.fs, filepath.Join(dir, fileName), data, 0o644); err != nil {
			return Manifest{}, errors.Wrapf(err, "checkpoint: write node %d", n)
		}
		m.Operators = append(m.Operators, OperatorEntry{NodeID: n, FileName: fileName, Size: int64(len(data))})
	}

	if err := s.writeManifest(manifestPath(s.base, epoch), m); err != nil {
		return Manifest{}, err
	}

	s.log.Info("checkpoint created", zap.Int64("epoch", epoch), zap.String("name", name), zap.Int("operators", len(m.Operators)))
	if s.wal != nil {
		if err := s.wal.Append(wal.Record{Type: wal.CheckpointCreated, Epoch: epoch, Name: name}); err != nil {
			return Manifest{}, errors.Wrap(err, "checkpoint: wal append")
		}
	}
	return m, nil
}

func (s *Store) writeManifest(path string, m Manifest) error {
	payload := encodeManifest(m)
	var buf []byte
	buf = append(buf, []byte(MagicV2)...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, payload...)
	crc := crc32.ChecksumIEEE(payload)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	buf = append(buf, crcBuf[:]...)
	return afero.WriteFile(s.fs, path, buf, 0o644)
}

// Restore locates cp_{epoch}/manifest.bin, verifies its magic/CRC (a v1
// legacy manifest skips the CRC check), and for each recorded operator
// that still exists in def by node id, reads its state file and invokes
// DeserializeState. Appends a RestoredFromCheckpoint WAL record.
func (s *Store) Restore(def *circuit.CircuitDefinition, epoch int64) (Manifest, error) {
	path := manifestPath(s.base, epoch)
	raw, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return Manifest{}, errors.Wrap(err, "checkpoint: read manifest")
	}

	m, err := parseManifest(raw)
	if err != nil {
		return Manifest{}, err
	}

	dir := dirFor(s.base, epoch)
	for _, entry := range m.Operators {
		op, ok := def.Operators[entry.NodeID]
		if !ok {
			continue
		}
		st, ok := op.Op.(circuit.Stateful)
		if !ok {
			continue
		}
		data, err := afero.ReadFile(s.fs, filepath.Join(dir, entry.FileName))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Manifest{}, errors.Wrapf(err, "checkpoint: read node %d state", entry.NodeID)
		}
		if err := st.DeserializeState(data); err != nil {
			return Manifest{}, errors.Wrapf(err, "checkpoint: deserialize node %d", entry.NodeID)
		}
	}

	s.log.Info("checkpoint restored", zap.Int64("epoch", epoch), zap.String("name", m.Name))
	if s.wal != nil {
		if err := s.wal.Append(wal.Record{Type: wal.RestoredFromCheckpoint, Epoch: epoch, Name: m.Name}); err != nil {
			return Manifest{}, errors.Wrap(err, "checkpoint: wal append")
		}
	}
	return m, nil
}

func parseManifest(raw []byte) (Manifest, error) {
	if len(raw) >= len(MagicV2) && string(raw[:len(MagicV2)]) == MagicV2 {
		rest := raw[len(MagicV2):]
		if len(rest) < 4 {
			return Manifest{}, errors.New("checkpoint: truncated manifest length")
		}
		payloadLen := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < payloadLen+4 {
			return Manifest{}, errors.New("checkpoint: truncated manifest payload")
		}
		payload := rest[:payloadLen]
		crcBuf := rest[payloadLen : payloadLen+4]
		want := binary.LittleEndian.Uint32(crcBuf)
		got := crc32.ChecksumIEEE(payload)
		if want != got {
			return Manifest{}, ErrCorrupt
		}
		return decodeManifest(payload)
	}
	if len(raw) >= len(MagicV1Legacy) && string(raw[:len(MagicV1Legacy)]) == MagicV1Legacy {
		rest := raw[len(MagicV1Legacy):]
		if len(rest) < 4 {
			return Manifest{}, errors.New("checkpoint: truncated legacy manifest length")
		}
		payloadLen := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < payloadLen {
			return Manifest{}, errors.New("checkpoint: truncated legacy manifest payload")
		}
		return decodeManifest(rest[:payloadLen])
	}
	return Manifest{}, ErrBadMagic
}
