package parallel_test

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paveg/dftour/internal/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewWorkerPool(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), parallel.NewWorkerPool(0).Workers())
	assert.Equal(t, runtime.NumCPU(), parallel.NewWorkerPool(-1).Workers())
	assert.Equal(t, 4, parallel.NewWorkerPool(4).Workers())
}

func TestProcessIndexed(t *testing.T) {
	pool := parallel.NewWorkerPool(3)
	input := []string{"a", "b", "c", "d", "e"}

	results, err := parallel.ProcessIndexed(context.Background(), pool, input,
		func(_ context.Context, index int, value string) (string, error) {
			// later items finish first
			time.Sleep(time.Duration(len(input)-index) * time.Millisecond)
			return value + string(rune('0'+index)), nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "b1", "c2", "d3", "e4"}, results)
}

func TestProcessIndexedEmpty(t *testing.T) {
	results, err := parallel.ProcessIndexed(context.Background(), parallel.NewWorkerPool(2), []int{},
		func(context.Context, int, int) (int, error) { return 0, nil })
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestProcessIndexedRespectsLimit(t *testing.T) {
	pool := parallel.NewWorkerPool(2)
	var running, peak atomic.Int32

	_, err := parallel.ProcessIndexed(context.Background(), pool, make([]int, 10),
		func(context.Context, int, int) (int, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return 0, nil
		})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestProcessIndexedError(t *testing.T) {
	pool := parallel.NewWorkerPool(1)
	boom := errors.New("boom")
	var calls atomic.Int32

	results, err := parallel.ProcessIndexed(context.Background(), pool, []int{1, 2, 3, 4},
		func(_ context.Context, _ int, v int) (int, error) {
			calls.Add(1)
			if v == 2 {
				return 0, boom
			}
			return v * 10, nil
		})
	require.ErrorIs(t, err, boom)
	require.Len(t, results, 4)
	assert.Equal(t, 10, results[0], "completed results are kept")
	assert.Equal(t, 0, results[1])
	assert.Less(t, calls.Load(), int32(4), "remaining work is skipped")
}

func TestProcessIndexedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parallel.ProcessIndexed(ctx, parallel.NewWorkerPool(2), []int{1, 2},
		func(context.Context, int, int) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, context.Canceled)
}
