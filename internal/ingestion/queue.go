package ingestion

import (
	"context"
	"sync/atomic"

	"github.com/ternarybob/lacuna/internal/models"
)

// Queue is the bounded buffer between metadata ingestion and the
// transformation worker pool. Enqueue blocks when the queue is full, which
// throttles discovery to the pace the workers can sustain.
type Queue struct {
	tasks chan models.TransformationTask

	pending   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewQueue creates a queue holding at most capacity tasks.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		tasks: make(chan models.TransformationTask, capacity),
	}
}

// Enqueue adds a task, blocking while the queue is at capacity.
func (q *Queue) Enqueue(ctx context.Context, task models.TransformationTask) error {
	select {
	case q.tasks <- task:
		q.pending.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take removes the next task, blocking until one is available.
func (q *Queue) Take(ctx context.Context) (models.TransformationTask, error) {
	select {
	case task := <-q.tasks:
		return task, nil
	case <-ctx.Done():
		return models.TransformationTask{}, ctx.Err()
	}
}

// MarkCompleted records that a taken task finished successfully.
func (q *Queue) MarkCompleted() {
	q.pending.Add(-1)
	q.completed.Add(1)
}

// MarkFailed records that a taken task failed terminally.
func (q *Queue) MarkFailed() {
	q.pending.Add(-1)
	q.failed.Add(1)
}

// Clear drains all buffered tasks and returns how many were removed.
// Tasks already taken by a worker are unaffected.
func (q *Queue) Clear() int {
	removed := 0
	for {
		select {
		case <-q.tasks:
			q.pending.Add(-1)
			removed++
		default:
			return removed
		}
	}
}

// Size returns the number of tasks currently buffered.
func (q *Queue) Size() int { return len(q.tasks) }

// Pending counts tasks enqueued but not yet marked completed or failed.
func (q *Queue) Pending() int64 { return q.pending.Load() }

// Completed counts tasks marked completed since startup.
func (q *Queue) Completed() int64 { return q.completed.Load() }

// Failed counts tasks marked failed since startup.
func (q *Queue) Failed() int64 { return q.failed.Load() }
