package models

import (
	"sync"
	"sync/atomic"
	"time"
)

// Job status values for an ingestion batch.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// IngestionJob tracks one batch ingestion run. Counters are atomic and the
// terminal state is guarded by a mutex, so the job goroutine and API reads
// never race.
type IngestionJob struct {
	ID        string
	StartedAt time.Time

	mu          sync.Mutex
	status      JobStatus
	completedAt *time.Time
	errMsg      string

	discovered atomic.Int64
	ingested   atomic.Int64
	failed     atomic.Int64
}

// NewIngestionJob creates a running job with zeroed counters.
func NewIngestionJob(id string) *IngestionJob {
	return &IngestionJob{
		ID:        id,
		status:    JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

func (j *IngestionJob) IncrementDiscovered() { j.discovered.Add(1) }
func (j *IngestionJob) IncrementIngested()   { j.ingested.Add(1) }
func (j *IngestionJob) IncrementFailed()     { j.failed.Add(1) }

func (j *IngestionJob) Discovered() int64 { return j.discovered.Load() }
func (j *IngestionJob) Ingested() int64   { return j.ingested.Load() }
func (j *IngestionJob) Failed() int64     { return j.failed.Load() }

// Complete marks the job finished.
func (j *IngestionJob) Complete() {
	now := time.Now().UTC()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = JobStatusCompleted
	j.completedAt = &now
}

// Fail marks the job terminally failed with the given message.
func (j *IngestionJob) Fail(msg string) {
	now := time.Now().UTC()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = JobStatusFailed
	j.completedAt = &now
	j.errMsg = msg
}

// Snapshot returns a serializable view of the job for API responses.
func (j *IngestionJob) Snapshot() IngestionJobSnapshot {
	j.mu.Lock()
	status, completedAt, errMsg := j.status, j.completedAt, j.errMsg
	j.mu.Unlock()

	return IngestionJobSnapshot{
		ID:          j.ID,
		Status:      status,
		StartedAt:   j.StartedAt,
		CompletedAt: completedAt,
		Error:       errMsg,
		Discovered:  j.Discovered(),
		Ingested:    j.Ingested(),
		Failed:      j.Failed(),
	}
}

// IngestionJobSnapshot is the wire form of IngestionJob.
type IngestionJobSnapshot struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
	Discovered  int64      `json:"discovered"`
	Ingested    int64      `json:"ingested"`
	Failed      int64      `json:"failed"`
}

// SyncRequest selects what a batch sync ingests. Empty Folders falls back
// to the configured sources; Types and MimeTypes narrow discovery for
// every requested folder.
type SyncRequest struct {
	Folders   []string `json:"folders,omitempty"`
	Recursive bool     `json:"recursive,omitempty"`
	Types     []string `json:"types,omitempty"`
	MimeTypes []string `json:"mimeTypes,omitempty"`
}

// QueueStats is the wire form of the transformation queue counters.
type QueueStats struct {
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	QueueSize int   `json:"queueSize"`
}

// TransformationTask is the unit of work handed from the metadata ingester
// to the transformation worker pool.
type TransformationTask struct {
	SourceID     string    `json:"sourceId"`
	LakeID       string    `json:"lakeId"`
	MimeType     string    `json:"mimeType,omitempty"`
	DocumentName string    `json:"documentName,omitempty"`
	DocumentPath string    `json:"documentPath,omitempty"`
	JobID        string    `json:"jobId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	RetryCount   int       `json:"retryCount"`
}

// NewTransformationTask stamps the task with its creation time.
func NewTransformationTask(sourceID, lakeID, mimeType, name, path string) TransformationTask {
	return TransformationTask{
		SourceID:     sourceID,
		LakeID:       lakeID,
		MimeType:     mimeType,
		DocumentName: name,
		DocumentPath: path,
		CreatedAt:    time.Now().UTC(),
	}
}
