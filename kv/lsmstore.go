package kv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/dbspgo/dbsp/algebra"
)

// LSMConfig controls segment sizing and cache budgets for LSMStore, wired
// from config.StorageConfig's compactionThreshold/blockCacheSize.
type LSMConfig struct {
	// SegmentItemCount is the number of mutable records buffered before
	// MoveMutableSegmentForward freezes them into a new on-disk segment.
	SegmentItemCount int
	// KeyCacheSize/ValueCacheSize split storage.blockCacheSize heuristically.
	KeyCacheSize   int
	ValueCacheSize int
}

func DefaultLSMConfig() LSMConfig {
	return LSMConfig{SegmentItemCount: 4096, KeyCacheSize: 256, ValueCacheSize: 256}
}

type lsmRecord[K, V algebra.Ordered] struct {
	key    Key[K, V]
	weight algebra.Weight
}

// segment is a single immutable, sorted, zstd-compressed run of records.
type segment[K, V algebra.Ordered] struct {
	path    string
	records []lsmRecord[K, V] // decoded lazily and cached
}

// LSMStore is the on-disk, log-structured implementation of Store from
// spec.md §4.9 (storage.mode=LSM): a mutable in-memory segment (a sorted
// slice) that MoveMutableSegmentForward freezes into a new compressed
// segment file, merged on demand by StartMergeOperation. Frozen segments
// are read back via mmap; decoded records are cached in an LRU keyed by
// segment path.
type LSMStore[K, V algebra.Ordered] struct {
	mu       sync.Mutex
	fs       afero.Fs
	dir      string
	cfg      LSMConfig
	mutable  []lsmRecord[K, V] // kept sorted
	segments []*segment[K, V]
	keyCache *lru.Cache[string, []lsmRecord[K, V]]
	nextSeg  int
	decode   func([]byte) ([]lsmRecord[K, V], error)
	encode   func([]lsmRecord[K, V]) ([]byte, error)
}

// NewLSMStore constructs an LSMStore rooted at dir on fs.
func NewLSMStore[K, V algebra.Ordered](fs afero.Fs, dir string, cfg LSMConfig) (*LSMStore[K, V], error) {
	if cfg.SegmentItemCount <= 0 {
		cfg = DefaultLSMConfig()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create segment dir: %w", err)
	}
	cache, err := lru.New[string, []lsmRecord[K, V]](maxInt(cfg.KeyCacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("kv: new segment cache: %w", err)
	}
	s := &LSMStore[K, V]{fs: fs, dir: dir, cfg: cfg, keyCache: cache}
	s.encode = s.encodeSegment
	s.decode = s.decodeSegment
	return s, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (s *LSMStore[K, V]) findMutable(key Key[K, V]) (int, bool) {
	i := sort.Search(len(s.mutable), func(i int) bool { return !Less(s.mutable[i].key, key) })
	if i < len(s.mutable) && s.mutable[i].key == key {
		return i, true
	}
	return i, false
}

func (s *LSMStore[K, V]) TryGet(key Key[K, V]) (algebra.Weight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The newest record for key decides; a zero-weight tombstone means the
	// key is deleted.
	if i, ok := s.findMutable(key); ok {
		w := s.mutable[i].weight
		return w, w != 0
	}
	for i := len(s.segments) - 1; i >= 0; i-- {
		recs, err := s.loadSegment(s.segments[i])
		if err != nil {
			continue
		}
		j := sort.Search(len(recs), func(j int) bool { return !Less(recs[j].key, key) })
		if j < len(recs) && recs[j].key == key {
			w := recs[j].weight
			return w, w != 0
		}
	}
	return 0, false
}

func (s *LSMStore[K, V]) Upsert(key Key[K, V], weight algebra.Weight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.findMutable(key)
	if ok {
		s.mutable[i].weight = weight
		return
	}
	s.mutable = append(s.mutable, lsmRecord[K, V]{})
	copy(s.mutable[i+1:], s.mutable[i:])
	s.mutable[i] = lsmRecord[K, V]{key: key, weight: weight}
	if len(s.mutable) >= s.cfg.SegmentItemCount {
		s.freezeLocked()
	}
}

func (s *LSMStore[K, V]) TryDelete(key Key[K, V]) (algebra.Weight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.findMutable(key); ok {
		w := s.mutable[i].weight
		s.mutable = append(s.mutable[:i], s.mutable[i+1:]...)
		return w, true
	}
	// not in the mutable segment: record an explicit zero-weight tombstone
	// so frozen segments lose the key once merged.
	s.mutable = append(s.mutable, lsmRecord[K, V]{key: key, weight: 0})
	sort.Slice(s.mutable, func(a, b int) bool { return Less(s.mutable[a].key, s.mutable[b].key) })
	return 0, true
}

func (s *LSMStore[K, V]) InMemoryRecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mutable)
}

// MoveMutableSegmentForward freezes the mutable segment into a new
// on-disk compressed segment file.
func (s *LSMStore[K, V]) MoveMutableSegmentForward() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freezeLocked()
}

func (s *LSMStore[K, V]) freezeLocked() {
	if len(s.mutable) == 0 {
		return
	}
	path := fmt.Sprintf("%s/seg_%06d.bin", s.dir, s.nextSeg)
	s.nextSeg++
	recs := s.mutable
	s.mutable = nil
	if err := s.writeSegment(path, recs); err != nil {
		// best-effort: keep records in memory if the write failed so no
		// data is lost; a retried MoveMutableSegmentForward call can try
		// again later.
		s.mutable = recs
		return
	}
	s.segments = append(s.segments, &segment[K, V]{path: path})
}

// StartMergeOperation compacts every frozen segment into one, retrying
// transient write failures with exponential backoff.
func (s *LSMStore[K, V]) StartMergeOperation() MergeHandle {
	return mergeOp[K, V]{store: s}
}

type mergeOp[K, V algebra.Ordered] struct{ store *LSMStore[K, V] }

func (m mergeOp[K, V]) Join() {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freezeLocked()
	if len(s.segments) <= 1 {
		return
	}
	merged := make([]lsmRecord[K, V], 0)
	for _, seg := range s.segments {
		recs, err := s.loadSegmentUnlocked(seg)
		if err != nil {
			continue
		}
		merged = append(merged, recs...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return Less(merged[i].key, merged[j].key) })
	merged = consolidateAdjacent(merged)

	path := fmt.Sprintf("%s/seg_%06d.bin", s.dir, s.nextSeg)
	s.nextSeg++
	op := func() error { return s.writeSegment(path, merged) }
	_ = backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3))

	for _, seg := range s.segments {
		_ = s.fs.Remove(seg.path)
		s.keyCache.Remove(seg.path)
	}
	if len(merged) == 0 {
		s.segments = nil
		return
	}
	s.segments = []*segment[K, V]{{path: path}}
}

// consolidateAdjacent collapses runs of equal-key records down to one
// record per key. recs must already be sorted by key with a stable sort
// that preserves each record's relative append order, oldest segment
// first and the most recently frozen segment (or mutable segment) last
// within a tie: each stored record already holds the cumulative weight
// at write time (see Upsert/TryDelete), so the newest record in a run is
// the current value and earlier ones in the same run are stale writes to
// the same key, not additional deltas to sum. Keeping the newest (and
// dropping it outright once its weight reaches zero, i.e. deleted)
// mirrors HybridStore.CreateIterator's overlay-wins-on-tie rule.
func consolidateAdjacent[K, V algebra.Ordered](recs []lsmRecord[K, V]) []lsmRecord[K, V] {
	out := recs[:0]
	for i := 0; i < len(recs); {
		j := i + 1
		for j < len(recs) && recs[j].key == recs[i].key {
			j++
		}
		newest := recs[j-1]
		if newest.weight != 0 {
			out = append(out, newest)
		}
		i = j
	}
	return out
}

func (s *LSMStore[K, V]) loadSegment(seg *segment[K, V]) ([]lsmRecord[K, V], error) {
	return s.loadSegmentUnlocked(seg)
}

func (s *LSMStore[K, V]) loadSegmentUnlocked(seg *segment[K, V]) ([]lsmRecord[K, V], error) {
	if recs, ok := s.keyCache.Get(seg.path); ok {
		return recs, nil
	}
	raw, err := s.readFile(seg.path)
	if err != nil {
		return nil, err
	}
	recs, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	s.keyCache.Add(seg.path, recs)
	return recs, nil
}

// readFile memory-maps the segment file when it backs a real *os.File
// (production use with afero.OsFs), falling back to a plain read for
// in-memory filesystems used in tests.
func (s *LSMStore[K, V]) readFile(path string) ([]byte, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if osFile, ok := f.(*os.File); ok {
		return mmapReadAll(osFile)
	}
	return io.ReadAll(f)
}

func (s *LSMStore[K, V]) writeSegment(path string, recs []lsmRecord[K, V]) error {
	payload, err := s.encode(recs)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, path, payload, 0o644)
}

// encodeSegment serializes records as a flat binary run, then zstd-
// compresses the whole block (spec.md §6 codec "compressed variant").
func (s *LSMStore[K, V]) encodeSegment(recs []lsmRecord[K, V]) ([]byte, error) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(recs)))
	for _, r := range recs {
		if err := encodeOrdered(&buf, r.key.K); err != nil {
			return nil, err
		}
		if err := encodeOrdered(&buf, r.key.V); err != nil {
			return nil, err
		}
		_ = binary.Write(&buf, binary.BigEndian, r.weight)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("kv: new zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

func (s *LSMStore[K, V]) decodeSegment(raw []byte) ([]lsmRecord[K, V], error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("kv: new zstd reader: %w", err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("kv: decompress segment: %w", err)
	}
	r := bytes.NewReader(plain)
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("kv: read segment header: %w", err)
	}
	recs := make([]lsmRecord[K, V], 0, count)
	for i := uint32(0); i < count; i++ {
		var rec lsmRecord[K, V]
		if rec.key.K, err = decodeOrdered[K](r); err != nil {
			return nil, err
		}
		if rec.key.V, err = decodeOrdered[V](r); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &rec.weight); err != nil {
			return nil, fmt.Errorf("kv: read segment weight: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *LSMStore[K, V]) CreateIterator() Iterator[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Segments are appended oldest-to-newest, then the mutable segment
	// (the most recently written data of all) last, so that a stable sort
	// leaves the newest write for any given key at the end of its run —
	// see consolidateAdjacent.
	var all []lsmRecord[K, V]
	for _, seg := range s.segments {
		recs, err := s.loadSegmentUnlocked(seg)
		if err != nil {
			continue
		}
		all = append(all, recs...)
	}
	all = append(all, s.mutable...)
	sort.SliceStable(all, func(i, j int) bool { return Less(all[i].key, all[j].key) })
	all = consolidateAdjacent(all)
	return &sliceIterator[K, V]{recs: all, pos: -1}
}

type sliceIterator[K, V algebra.Ordered] struct {
	recs []lsmRecord[K, V]
	pos  int
}

func (it *sliceIterator[K, V]) Seek(lower Key[K, V]) bool {
	it.pos = sort.Search(len(it.recs), func(i int) bool { return !Less(it.recs[i].key, lower) })
	return it.pos < len(it.recs)
}

func (it *sliceIterator[K, V]) Next() bool {
	it.pos++
	return it.pos < len(it.recs)
}

func (it *sliceIterator[K, V]) CurrentKey() Key[K, V]        { return it.recs[it.pos].key }
func (it *sliceIterator[K, V]) CurrentValue() algebra.Weight { return it.recs[it.pos].weight }
func (it *sliceIterator[K, V]) Dispose()                     {}
