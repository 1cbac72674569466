package algebra

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// counter is a minimal Group[counter] implementation used only to
// exercise Diff/ZeroCheck against the contract's equations.
type counter int

func (c counter) Zero() counter             { return 0 }
func (c counter) Add(other counter) counter { return c + other }
func (c counter) Negate() counter           { return -c }
func (c counter) ScalarMul(s int64) counter { return counter(int64(c) * s) }
func (c counter) Equal(other counter) bool  { return c == other }

func TestDiffMatchesAddNegate(t *testing.T) {
	a, b := counter(7), counter(3)
	require.Equal(t, counter(4), Diff(a, b))
	require.Equal(t, counter(-4), Diff(b, a))
}

func TestDiffSelfIsZero(t *testing.T) {
	a := counter(42)
	require.Equal(t, a.Zero(), Diff(a, a))
}

func TestZeroCheck(t *testing.T) {
	require.True(t, ZeroCheck(counter(0)))
	require.False(t, ZeroCheck(counter(1)))
}

func TestGroupLaws(t *testing.T) {
	a, b, c := counter(2), counter(5), counter(-3)
	require.Equal(t, a.Add(b), b.Add(a))
	require.Equal(t, a.Add(b).Add(c), a.Add(b.Add(c)))
	require.Equal(t, a, a.Add(a.Zero()))
	require.Equal(t, a.Zero(), a.Add(a.Negate()))
}
