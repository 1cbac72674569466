package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	A string
	B int
}

func TestGobCodecRoundTrip(t *testing.T) {
	c := NewGobCodec[sample]()
	data, err := c.Serialize(sample{A: "x", B: 7})
	require.NoError(t, err)
	require.Greater(t, c.EstimateSize(sample{A: "x", B: 7}), 0)

	out, err := c.Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, sample{A: "x", B: 7}, out)
}

func TestCompressedCodecRoundTrip(t *testing.T) {
	inner := NewGobCodec[sample]()
	c := NewCompressedCodec[sample](inner, 0)

	v := sample{A: "a long enough string to compress meaningfully, repeated repeated repeated", B: 42}
	data, err := c.Serialize(v)
	require.NoError(t, err)

	out, err := c.Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, v, out)
}

func TestCompressedCodecSmallerThanRawForRepetitiveData(t *testing.T) {
	inner := NewGobCodec[sample]()
	c := NewCompressedCodec[sample](inner, 0)

	repetitive := sample{A: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", B: 1}
	rawLen := inner.EstimateSize(repetitive)
	compressedLen := c.EstimateSize(repetitive)
	require.Less(t, compressedLen, rawLen)
}
