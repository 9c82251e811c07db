package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueRunsTasks(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	var count int64
	for i := 0; i < 5; i++ {
		err := q.Enqueue(Task{
			Name: "tick",
			Run: func(context.Context) error {
				atomic.AddInt64(&count, 1)
				return nil
			},
		})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) == 5
	}, time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailedTask(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	var attempts int64
	err := q.Enqueue(Task{
		Name: "flaky",
		Run: func(context.Context) error {
			if atomic.AddInt64(&attempts, 1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&attempts) == 3
	}, time.Second, 10*time.Millisecond)
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 1, RetryDelay: 5 * time.Millisecond, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	var attempts int64
	err := q.Enqueue(Task{
		Name: "doomed",
		Run: func(context.Context) error {
			atomic.AddInt64(&attempts, 1)
			return errors.New("permanent")
		},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&attempts) == 2
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(2), atomic.LoadInt64(&attempts))
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", QueueConfig{Logger: zap.NewNop()})

	err := q.Enqueue(Task{Name: "early", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
}

func TestQueueRejectsNilRun(t *testing.T) {
	q := NewQueue("test", QueueConfig{Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	err := q.Enqueue(Task{Name: "empty"})
	require.Error(t, err)
}
