package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var _ Codec[int] = (*MockCodec)(nil)

// TestMockCodecScriptedRoundTrip exercises the gomock double with scripted
// argument/return expectations, then wires it as CompressedCodec's inner
// codec to confirm it composes with the real library code, not just a
// standalone call.
func TestMockCodecScriptedRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := NewMockCodec(ctrl)

	inner.EXPECT().Serialize(42).Return([]byte{42}, nil).Times(1)
	inner.EXPECT().Deserialize([]byte{42}).Return(42, nil).Times(1)

	c := NewCompressedCodec[int](inner, 0)
	data, err := c.Serialize(42)
	require.NoError(t, err)

	out, err := c.Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, 42, out)
}

func TestMockCodecEstimateSize(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewMockCodec(ctrl)
	c.EXPECT().EstimateSize(7).Return(3)
	require.Equal(t, 3, c.EstimateSize(7))
}
