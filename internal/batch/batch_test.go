package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettle_CollectsEveryOutcome(t *testing.T) {
	inputs := []int{1, 2, 3, 4, 5}

	outcomes, err := Settle(context.Background(), inputs, 2, func(ctx context.Context, i int, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("boom")
		}
		if n == 4 {
			panic("bad input")
		}
		return n * 10, nil
	})

	require.NoError(t, err)
	require.Len(t, outcomes, 5)
	assert.Equal(t, 10, outcomes[0].Value)
	assert.Equal(t, 20, outcomes[1].Value)
	assert.EqualError(t, outcomes[2].Err, "boom")
	assert.ErrorContains(t, outcomes[3].Err, "panicked")
	assert.Equal(t, 50, outcomes[4].Value)
}

func TestSettle_BoundsConcurrency(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	inputs := make([]int, 10)

	_, err := Settle(context.Background(), inputs, 3, func(ctx context.Context, i int, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(3))
}

func TestSettle_BatchesAreSequential(t *testing.T) {
	var finished atomic.Int32
	inputs := make([]int, 6)

	outcomes, err := Settle(context.Background(), inputs, 3, func(ctx context.Context, i int, _ int) (int32, error) {
		started := finished.Load()
		time.Sleep(2 * time.Millisecond)
		finished.Add(1)
		return started, nil
	})

	require.NoError(t, err)
	for i := 3; i < 6; i++ {
		assert.Equal(t, int32(3), outcomes[i].Value, "task %d started before first batch settled", i)
	}
}

func TestSettle_StopsAtCheckpointWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inputs := make([]int, 6)
	var calls atomic.Int32

	outcomes, err := Settle(ctx, inputs, 2, func(ctx context.Context, i int, _ int) (int, error) {
		calls.Add(1)
		cancel()
		return i, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, outcomes, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSettle_Empty(t *testing.T) {
	outcomes, err := Settle(context.Background(), []string{}, 3, func(ctx context.Context, i int, s string) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
