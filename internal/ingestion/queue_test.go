package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/lacuna/internal/models"
)

func TestQueue_EnqueueTake(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, models.NewTransformationTask("n1", "l1", "", "", "")))
	require.NoError(t, q.Enqueue(ctx, models.NewTransformationTask("n2", "l2", "", "", "")))
	assert.Equal(t, 2, q.Size())
	assert.Equal(t, int64(2), q.Pending())

	task, err := q.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, "n1", task.SourceID)
	assert.Equal(t, 1, q.Size())
}

func TestQueue_EnqueueBlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, models.NewTransformationTask("n1", "l1", "", "", "")))

	t.Run("blocked enqueue honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := q.Enqueue(ctx, models.NewTransformationTask("n2", "l2", "", "", ""))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("unblocks after a take", func(t *testing.T) {
		done := make(chan error, 1)
		go func() {
			done <- q.Enqueue(context.Background(), models.NewTransformationTask("n2", "l2", "", "", ""))
		}()

		_, err := q.Take(ctx)
		require.NoError(t, err)

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("enqueue did not unblock")
		}
	})
}

func TestQueue_TakeHonorsCancellation(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Take(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_Counters(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	for _, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, q.Enqueue(ctx, models.NewTransformationTask(id, "l", "", "", "")))
	}

	for i := 0; i < 3; i++ {
		_, err := q.Take(ctx)
		require.NoError(t, err)
	}
	q.MarkCompleted()
	q.MarkCompleted()
	q.MarkFailed()

	assert.Equal(t, int64(0), q.Pending())
	assert.Equal(t, int64(2), q.Completed())
	assert.Equal(t, int64(1), q.Failed())
}

func TestQueue_Clear(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(4)
	require.NoError(t, q.Enqueue(ctx, models.NewTransformationTask("n1", "l1", "", "", "")))
	require.NoError(t, q.Enqueue(ctx, models.NewTransformationTask("n2", "l2", "", "", "")))

	assert.Equal(t, 2, q.Clear())
	assert.Equal(t, 0, q.Size())
	assert.Equal(t, int64(0), q.Pending())
	assert.Equal(t, 0, q.Clear(), "empty queue clears nothing")
}

func TestNewQueue_MinimumCapacity(t *testing.T) {
	q := NewQueue(0)
	require.NoError(t, q.Enqueue(context.Background(), models.TransformationTask{}))
	assert.Equal(t, 1, q.Size())
}
