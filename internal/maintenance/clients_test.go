package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatorDeadlockRate(t *testing.T) {
	db := SimDatabase{Sim: NewSimulator(0, 42)}

	const runs = 3000
	failures := 0
	for i := 0; i < runs; i++ {
		err := db.CheckForDeadlocks(context.Background())
		if err != nil {
			require.ErrorIs(t, err, ErrDeadlock)
			failures++
		}
	}
	assert.InDelta(t, 1.0/3, float64(failures)/runs, 0.05)
}

func TestSimulatorSameSeedSameOutcome(t *testing.T) {
	a := SimDatabase{Sim: NewSimulator(0, 7)}
	b := SimDatabase{Sim: NewSimulator(0, 7)}
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.CheckForDeadlocks(context.Background()), b.CheckForDeadlocks(context.Background()))
	}
}

func TestSimulatorScalesLatency(t *testing.T) {
	sim := NewSimulator(0.5, 1)
	var waited []time.Duration
	sim.wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}

	require.NoError(t, SimDatabase{Sim: sim}.UpdateIndexes(context.Background()))
	require.NoError(t, SimQueue{Sim: sim}.CleanTopic(context.Background(), "trade-events"))
	require.NoError(t, SimObjectStore{Sim: sim}.CleanUpOldBlobs(context.Background()))
	assert.Equal(t, []time.Duration{4 * time.Second, time.Second, 5 * time.Second}, waited)
}

func TestSimulatorHonoursCancellation(t *testing.T) {
	sim := NewSimulator(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SimObjectStore{Sim: sim}.CleanUpOldBlobs(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), time.Second)
}

func TestNegativeScaleIsZero(t *testing.T) {
	assert.Zero(t, NewSimulator(-3, 1).Scale)
}
