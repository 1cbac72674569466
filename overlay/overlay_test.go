package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldFlushBySize(t *testing.T) {
	th := Thresholds{SizeThreshold: 100, TimeThreshold: time.Hour}
	now := time.Unix(1000, 0)
	last := now.Add(-time.Minute)
	require.True(t, ShouldFlush(100, last, now, th))
	require.True(t, ShouldFlush(150, last, now, th))
	require.False(t, ShouldFlush(50, last, now, th))
}

func TestShouldFlushByTime(t *testing.T) {
	th := Thresholds{SizeThreshold: 1000, TimeThreshold: 10 * time.Second}
	now := time.Unix(1000, 0)
	require.True(t, ShouldFlush(1, now.Add(-20*time.Second), now, th))
	require.False(t, ShouldFlush(1, now.Add(-5*time.Second), now, th))
}

func TestShouldFlushZeroThresholdsNeverFlush(t *testing.T) {
	th := Thresholds{}
	now := time.Unix(1000, 0)
	require.False(t, ShouldFlush(1_000_000, now.Add(-time.Hour*999), now, th))
}

func TestTightened(t *testing.T) {
	th := Thresholds{SizeThreshold: 400, TimeThreshold: 40 * time.Second}
	got := th.Tightened(4)
	require.Equal(t, Thresholds{SizeThreshold: 100, TimeThreshold: 10 * time.Second}, got)
}

func TestTightenedFactorAtMostOneIsNoop(t *testing.T) {
	th := Thresholds{SizeThreshold: 400, TimeThreshold: 40 * time.Second}
	require.Equal(t, th, th.Tightened(1))
	require.Equal(t, th, th.Tightened(0))
}
