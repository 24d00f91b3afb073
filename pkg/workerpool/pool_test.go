package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestProcess_SubmissionOrder(t *testing.T) {
	pool := New(Config{MaxConcurrent: 4}, zap.NewNop())

	items := make([]WorkItem[string], 10)
	for i := range items {
		delay := time.Duration(10-i) * time.Millisecond
		id := fmt.Sprintf("q%d", i)
		items[i] = WorkItem[string]{
			ID: id,
			Execute: func(ctx context.Context) (string, error) {
				time.Sleep(delay)
				return "result-" + id, nil
			},
		}
	}

	results := Process(context.Background(), pool, items, nil)

	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("q%d", i), r.ID)
		assert.Equal(t, fmt.Sprintf("result-q%d", i), r.Result)
		assert.NoError(t, r.Err)
	}
}

func TestProcess_ErrorsAndPanicsStayIsolated(t *testing.T) {
	pool := New(Config{MaxConcurrent: 2}, zap.NewNop())

	expectedErr := errors.New("task failed")
	items := []WorkItem[int]{
		{ID: "ok", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{ID: "fails", Execute: func(ctx context.Context) (int, error) { return 0, expectedErr }},
		{ID: "panics", Execute: func(ctx context.Context) (int, error) { panic("boom") }},
		{ID: "ok2", Execute: func(ctx context.Context) (int, error) { return 2, nil }},
	}

	results := Process(context.Background(), pool, items, nil)

	require.Len(t, results, 4)
	assert.Equal(t, 1, results[0].Result)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, expectedErr)
	require.Error(t, results[2].Err)
	assert.Contains(t, results[2].Err.Error(), "boom")
	assert.Zero(t, results[2].Result)
	assert.Equal(t, 2, results[3].Result)
	assert.NoError(t, results[3].Err)
}

func TestProcess_EmptyItems(t *testing.T) {
	pool := New(DefaultConfig(), zap.NewNop())
	assert.Nil(t, Process[string](context.Background(), pool, nil, nil))
}

func TestProcess_CancelledContext(t *testing.T) {
	pool := New(Config{MaxConcurrent: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var executed atomic.Int32
	items := make([]WorkItem[string], 5)
	for i := range items {
		items[i] = WorkItem[string]{
			ID: fmt.Sprintf("task%d", i),
			Execute: func(ctx context.Context) (string, error) {
				executed.Add(1)
				return "done", ctx.Err()
			},
		}
	}

	results := Process(ctx, pool, items, nil)

	require.Len(t, results, 5)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestProcess_ConcurrencyLimit(t *testing.T) {
	maxConcurrent := 3
	pool := New(Config{MaxConcurrent: maxConcurrent}, zap.NewNop())

	var current atomic.Int32
	var maxObserved atomic.Int32

	items := make([]WorkItem[string], 10)
	for i := range items {
		items[i] = WorkItem[string]{
			ID: fmt.Sprintf("task%d", i),
			Execute: func(ctx context.Context) (string, error) {
				n := current.Add(1)
				defer current.Add(-1)
				for {
					seen := maxObserved.Load()
					if n <= seen || maxObserved.CompareAndSwap(seen, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				return "done", nil
			},
		}
	}

	results := Process(context.Background(), pool, items, nil)

	assert.Len(t, results, 10)
	assert.LessOrEqual(t, maxObserved.Load(), int32(maxConcurrent))
}

func TestProcess_ProgressCallback(t *testing.T) {
	pool := New(Config{MaxConcurrent: 2}, zap.NewNop())

	items := []WorkItem[string]{
		{ID: "a", Execute: func(ctx context.Context) (string, error) { return "a", nil }},
		{ID: "b", Execute: func(ctx context.Context) (string, error) { return "b", nil }},
		{ID: "c", Execute: func(ctx context.Context) (string, error) { return "c", nil }},
	}

	var mu sync.Mutex
	var updates []int
	Process(context.Background(), pool, items, func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		updates = append(updates, completed)
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, updates)
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, 8, New(Config{MaxConcurrent: 0}, zap.NewNop()).MaxConcurrent())
	assert.Equal(t, 8, New(Config{MaxConcurrent: -1}, nil).MaxConcurrent())
	assert.Equal(t, 8, DefaultConfig().MaxConcurrent)
}
