package outcome

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlePreservesOrder(t *testing.T) {
	keys := []int64{5, 4, 3, 2, 1}

	results := Settle(context.Background(), keys, 0, func(_ context.Context, key int64) (int64, error) {
		time.Sleep(time.Duration(key) * time.Millisecond)
		if key%2 == 0 {
			return 0, fmt.Errorf("even %d", key)
		}
		return key * 10, nil
	})

	require.Len(t, results, len(keys))
	for i, result := range results {
		assert.Equal(t, keys[i], result.Key)
		assert.Equal(t, keys[i]%2 != 0, result.Outcome.IsFulfilled())
	}
	assert.Equal(t, []int64{50, 30, 10}, Values(results))
}

func TestSettleDoesNotShortCircuit(t *testing.T) {
	var calls atomic.Int32
	keys := []string{"a", "b", "c", "d"}

	results := Settle(context.Background(), keys, 2, func(_ context.Context, key string) (struct{}, error) {
		calls.Add(1)
		if key == "a" {
			return struct{}{}, errors.New("first fails")
		}
		return struct{}{}, nil
	})

	assert.Equal(t, int32(4), calls.Load())
	err := AggregateKeyed(results, Summary{Verb: "Processed"})
	assert.EqualError(t, err, "Processed with 3 successes and 1 failures.")
}

func TestSettleRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	keys := make([]int, 20)
	for i := range keys {
		keys[i] = i
	}

	Settle(context.Background(), keys, 3, func(_ context.Context, _ int) (int, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return 0, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestSettleRecoversPanic(t *testing.T) {
	results := Settle(context.Background(), []int{1, 2}, 0, func(_ context.Context, key int) (int, error) {
		if key == 2 {
			panic("nil site")
		}
		return key, nil
	})

	assert.True(t, results[0].Outcome.IsFulfilled())
	require.False(t, results[1].Outcome.IsFulfilled())
	assert.EqualError(t, results[1].Outcome.Reason(), "panic: nil site")
}

func TestSettleEmpty(t *testing.T) {
	results := Settle(context.Background(), []int{}, 4, func(_ context.Context, key int) (int, error) {
		t.Fatal("should not be called")
		return 0, nil
	})
	assert.Empty(t, results)
}
