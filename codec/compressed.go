package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

// CompressedCodec wraps an inner Codec with zstd compression, for state
// that is written often but read rarely (checkpoint payloads, frozen LSM
// segment blocks).
type CompressedCodec[T any] struct {
	inner Codec[T]
	level zstd.EncoderLevel
}

// NewCompressedCodec wraps inner with zstd at the given level (zero value
// uses zstd's default level).
func NewCompressedCodec[T any](inner Codec[T], level zstd.EncoderLevel) *CompressedCodec[T] {
	return &CompressedCodec[T]{inner: inner, level: level}
}

func (c *CompressedCodec[T]) Serialize(v T) ([]byte, error) {
	raw, err := c.inner.Serialize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	opts := []zstd.EOption{}
	if c.level != 0 {
		opts = append(opts, zstd.WithEncoderLevel(c.level))
	}
	w, err := zstd.NewWriter(&buf, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *CompressedCodec[T]) Deserialize(data []byte) (T, error) {
	var zero T
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return zero, err
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return zero, err
	}
	return c.inner.Deserialize(raw)
}

// EstimateSize compresses v to measure the on-disk footprint precisely;
// callers that need a cheap estimate should use the inner codec directly.
func (c *CompressedCodec[T]) EstimateSize(v T) int {
	data, err := c.Serialize(v)
	if err != nil {
		return 0
	}
	return len(data)
}
