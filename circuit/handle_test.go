package circuit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputHandleSendAndReader(t *testing.T) {
	h := NewInputHandle[int](StreamHandle{Node: 1}, 2)
	require.NoError(t, h.Send(10))
	require.NoError(t, h.Send(20))
	require.Equal(t, 10, <-h.Reader())
	require.Equal(t, 20, <-h.Reader())
}

func TestInputHandleRejectsAfterComplete(t *testing.T) {
	h := NewInputHandle[int](StreamHandle{Node: 1}, 1)
	h.Complete()
	require.ErrorIs(t, h.Send(1), ErrHandleClosed)
}

func TestInputHandleCompleteIsIdempotent(t *testing.T) {
	h := NewInputHandle[int](StreamHandle{Node: 1}, 1)
	h.Complete()
	h.Complete()
}

func TestInputHandleQueueFullReturnsError(t *testing.T) {
	h := NewInputHandle[int](StreamHandle{Node: 1}, 1)
	require.NoError(t, h.Send(1))
	require.Error(t, h.Send(2))
}

func TestOutputHandleCachesCurrentValue(t *testing.T) {
	h := NewOutputHandle[string](StreamHandle{Node: 2}, 4)
	_, ok := h.GetCurrentValue()
	require.False(t, ok)

	require.NoError(t, h.PublishAsync("a"))
	v, ok := h.GetCurrentValue()
	require.True(t, ok)
	require.Equal(t, "a", v)

	require.NoError(t, h.PublishAsync("b"))
	v, _ = h.GetCurrentValue()
	require.Equal(t, "b", v)
}

func TestOutputHandleRejectsAfterComplete(t *testing.T) {
	h := NewOutputHandle[int](StreamHandle{Node: 1}, 1)
	h.Complete()
	require.ErrorIs(t, h.PublishAsync(1), ErrHandleClosed)
}
