package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nexuscash/core/random"
)

func TestSyncAppliesDrift(t *testing.T) {
	clock := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	engine := NewEngine(300, WithRandom(random.NewSequence(1.0, 0.0, 0.5)), WithClock(func() time.Time { return clock }))

	prev, next := engine.Sync()
	require.Equal(t, 300.0, prev)
	require.Equal(t, 312.0, next)

	clock = clock.Add(time.Minute)
	_, next = engine.Sync()
	require.Equal(t, 299.52, next)
	require.Equal(t, clock, engine.Quote().SyncedAt)

	_, next = engine.Sync()
	require.Equal(t, 299.52, next)
}

func TestDriftClamps(t *testing.T) {
	require.Equal(t, MaxRate, Drift(699, 0.04))
	require.Equal(t, MinRate, Drift(181, -0.04))
}

func TestSyncStaysInBand(t *testing.T) {
	engine := NewEngine(650, WithRandom(random.NewSource(9)))
	for i := 0; i < 500; i++ {
		_, next := engine.Sync()
		require.GreaterOrEqual(t, next, MinRate)
		require.LessOrEqual(t, next, MaxRate)
	}
}

func TestSetValidates(t *testing.T) {
	engine := NewEngine(0)
	require.Equal(t, DefaultRate, engine.Rate())
	require.ErrorIs(t, engine.Set(-1), ErrInvalidRate)
	require.NoError(t, engine.Set(412.345))
	require.Equal(t, 412.35, engine.Rate())
}
