package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallel2(t *testing.T) {
	a, b, err := Parallel2(context.Background(),
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (string, error) { return "two", nil },
	)
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, "two", b)

	a, b, err = Parallel2(context.Background(),
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (string, error) { return "", errBoom },
	)
	require.ErrorIs(t, err, errBoom)
	assert.Zero(t, a)
	assert.Empty(t, b)
}

func TestParallel2_CancelsSibling(t *testing.T) {
	_, _, err := Parallel2(context.Background(),
		func(ctx context.Context) (int, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(5 * time.Second):
				return 1, nil
			}
		},
		func(context.Context) (int, error) { return 0, errBoom },
	)
	require.ErrorIs(t, err, errBoom)
}

func TestParallelLimit_PreservesOrderAndBound(t *testing.T) {
	items := []int{5, 1, 4, 2, 3, 0, 6, 7}

	var inFlight, peak atomic.Int32

	out, err := ParallelLimit(context.Background(), 3, items, func(_ context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}

		time.Sleep(time.Duration(n) * time.Millisecond)
		inFlight.Add(-1)

		return n * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 10, 40, 20, 30, 0, 60, 70}, out)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestParallelLimit_Error(t *testing.T) {
	out, err := ParallelLimit(context.Background(), 0, []string{"a", "b"}, func(_ context.Context, s string) (string, error) {
		if s == "b" {
			return "", errBoom
		}

		return s, nil
	})
	require.ErrorIs(t, err, errBoom)
	assert.Nil(t, out)

	empty, err := ParallelLimit(context.Background(), 2, []string(nil), func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFanOut(t *testing.T) {
	var sum atomic.Int64

	items := make([]int, 100)
	for i := range items {
		items[i] = i + 1
	}

	err := FanOut(context.Background(), 4, items, func(_ context.Context, n int) error {
		sum.Add(int64(n))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5050), sum.Load())
}

func TestFanOut_StopsOnError(t *testing.T) {
	var handled atomic.Int32

	err := FanOut(context.Background(), 1, []int{1, 2, 3}, func(_ context.Context, n int) error {
		handled.Add(1)
		if n == 1 {
			return errBoom
		}

		return nil
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, int32(1), handled.Load())
}

func TestFanOut_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := FanOut(ctx, 2, []int{1, 2, 3}, func(context.Context, int) error { return nil })
	if err != nil {
		assert.True(t, errors.Is(err, context.Canceled))
	}
}
