package common

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestProcess_AllSuccess_KeepsOrder(t *testing.T) {
	bp := NewBatchProcessor[string, string](WithMaxConcurrency(2))
	items := []string{"governing_law", "termination", "liability"}

	res, err := bp.Process(context.Background(), items, func(_ context.Context, item string) (string, error) {
		return item + "_done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.SuccessCount)
	for i, item := range items {
		assert.Equal(t, i, res.Results[i].Index)
		assert.Equal(t, item+"_done", res.Results[i].Result)
	}
}

func TestProcess_FailureDoesNotAbortSiblings(t *testing.T) {
	bp := NewBatchProcessor[int, int]()
	res, err := bp.Process(context.Background(), []int{1, 2, 3}, func(_ context.Context, i int) (int, error) {
		if i == 2 {
			return 0, errors.New("model unavailable")
		}
		return i * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, ItemStatusFailed, res.Results[1].Status)
	assert.Equal(t, 30, res.Results[2].Result)
}

func TestProcess_ConcurrencyLimit(t *testing.T) {
	var current, peak int32
	bp := NewBatchProcessor[int, int](WithMaxConcurrency(2))

	_, err := bp.Process(context.Background(), []int{1, 2, 3, 4, 5, 6}, func(_ context.Context, i int) (int, error) {
		n := atomic.AddInt32(&current, 1)
		defer atomic.AddInt32(&current, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return i, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestProcess_ItemTimeout(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithItemTimeout(10 * time.Millisecond))
	res, err := bp.Process(context.Background(), []int{1}, func(ctx context.Context, _ int) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)
	assert.Equal(t, ItemStatusTimeout, res.Results[0].Status)
	assert.Equal(t, 1, res.TimeoutCount)
}

func TestProcess_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bp := NewBatchProcessor[int, int](WithMaxConcurrency(1))
	res, err := bp.Process(ctx, []int{1, 2}, func(ctx context.Context, i int) (int, error) {
		return i, ctx.Err()
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
	for _, r := range res.Results {
		require.NotNil(t, r)
		assert.Equal(t, ItemStatusCancelled, r.Status)
	}
}

func TestProcess_FailingItemIsAttemptedOnce(t *testing.T) {
	var calls int32
	bp := NewBatchProcessor[string, int](WithItemTimeout(time.Second))

	res, err := bp.Process(context.Background(), []string{"termination"}, func(_ context.Context, _ string) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, ErrServingUnavailable
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, ItemStatusFailed, res.Results[0].Status)
	assert.ErrorIs(t, res.Results[0].Error, ErrServingUnavailable)
	assert.Equal(t, 1, res.FailureCount)
}

func TestProcess_NilFunc(t *testing.T) {
	bp := NewBatchProcessor[int, int]()
	_, err := bp.Process(context.Background(), []int{1}, nil)
	assert.Error(t, err)
}

func TestProcess_Empty(t *testing.T) {
	bp := NewBatchProcessor[int, int]()
	res, err := bp.Process(context.Background(), nil, func(context.Context, int) (int, error) { return 0, nil })
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalCount)
	assert.NotNil(t, res.Results)
}

func TestProcess_RecordsMetrics(t *testing.T) {
	m := NewInMemoryIntelligenceMetrics()
	bp := NewBatchProcessor[int, int](WithBatchName("categories"), WithBatchMetrics(m))
	_, err := bp.Process(context.Background(), []int{1, 2}, func(_ context.Context, i int) (int, error) { return i, nil })
	require.NoError(t, err)

	batches := m.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, "categories", batches[0].BatchName)
	assert.Equal(t, 2, batches[0].SuccessItems)
}

func TestShutdown_RejectsNewBatches(t *testing.T) {
	bp := NewBatchProcessor[int, int]()
	require.NoError(t, bp.Shutdown(context.Background()))

	_, err := bp.Process(context.Background(), []int{1}, func(_ context.Context, i int) (int, error) { return i, nil })
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestItemStatus_String(t *testing.T) {
	assert.Equal(t, "SUCCESS", ItemStatusSuccess.String())
	assert.Equal(t, "TIMEOUT", ItemStatusTimeout.String())
	assert.Equal(t, "UNKNOWN(9)", ItemStatus(9).String())
}

//Personal.AI order the ending
