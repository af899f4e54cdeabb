package random

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeededSourceIsDeterministic(t *testing.T) {
	a := NewSource(42)
	b := NewSource(42)
	for i := 0; i < 10; i++ {
		require.Equal(t, a.Float64(), b.Float64())
		require.Equal(t, a.IntN(500), b.IntN(500))
	}
}

func TestSourceRanges(t *testing.T) {
	src := NewSource(7)
	for i := 0; i < 200; i++ {
		f := src.Float64()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
		n := src.IntN(36)
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, 36)
	}
	require.Equal(t, 0, src.IntN(0))
}

func TestSequenceReplaysAndHoldsLast(t *testing.T) {
	seq := NewSequence(0.5, 0.95)
	require.Equal(t, 0.5, seq.Float64())
	require.Equal(t, 0.95, seq.Float64())
	require.Equal(t, 0.95, seq.Float64())
	seq.Push(0.1)
	require.Equal(t, 0.1, seq.Float64())

	empty := NewSequence()
	require.Equal(t, 0.0, empty.Float64())
	require.Equal(t, 0, empty.IntN(10))
}

func TestSequenceIntN(t *testing.T) {
	seq := NewSequence(0.25, 0.999999, 0)
	require.Equal(t, 125, seq.IntN(500))
	require.Equal(t, 499, seq.IntN(500))
	require.Equal(t, 0, seq.IntN(500))
}

func TestBase36(t *testing.T) {
	out := Base36(NewSequence(0, 0.5, 0.99), 3)
	require.Equal(t, "0iz", out)
	require.Len(t, Base36(NewSource(1), 6), 6)
}
