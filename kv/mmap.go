package kv

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// mmapReadAll memory-maps f read-only and copies it into a plain byte
// slice, per spec.md §4.9's "frozen segments are read back via mmap".
// Copying out of the mapping keeps the returned bytes valid after the
// mapping is unmapped, at the cost of one extra copy relative to reading
// the mapping in place — acceptable since decoded segments are cached.
func mmapReadAll(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer m.Unmap()
	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}
