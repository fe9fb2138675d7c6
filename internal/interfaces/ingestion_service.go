package interfaces

import (
	"context"

	"github.com/ternarybob/lacuna/internal/models"
)

// IngestionService runs batch syncs from the source repository into the
// lake. Each sync is tracked as a job; transformation work is queued to a
// shared worker pool.
type IngestionService interface {
	// StartSync walks the requested source folders and ingests matching
	// nodes. An empty request syncs all configured sources. Returns the
	// job id immediately; the sync runs in the background.
	StartSync(ctx context.Context, req models.SyncRequest) (string, error)

	// SyncNode ingests a single node by id, synchronously.
	SyncNode(ctx context.Context, nodeID string) error

	// GetJob returns a snapshot of the job, or nil when unknown.
	GetJob(jobID string) *models.IngestionJobSnapshot

	// ListJobs returns snapshots of all known jobs, newest first.
	ListJobs() []models.IngestionJobSnapshot

	// QueueDepth returns the number of transformation tasks waiting.
	QueueDepth() int

	// QueueStats returns the transformation queue counters.
	QueueStats() models.QueueStats

	// ClearQueue drops all waiting transformation tasks and returns how
	// many were removed. In-flight tasks are not interrupted.
	ClearQueue() int
}
