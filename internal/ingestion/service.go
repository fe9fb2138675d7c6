package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

// Service coordinates batch syncs: discovery walks the source folders,
// the metadata ingester writes phase-one documents, and transformation
// tasks are queued for the worker pool. Each sync runs as a tracked job.
type Service struct {
	cfg        common.IngestionConfig
	discoverer *Discoverer
	ingester   *MetadataIngester
	queue      *Queue
	events     interfaces.EventPublisher

	jobsMu sync.RWMutex
	jobs   map[string]*models.IngestionJob
	order  []string

	// executor bounds how many syncs run concurrently.
	executor chan struct{}

	logger arbor.ILogger
}

// NewService creates the ingestion service. events may be nil.
func NewService(
	discoverer *Discoverer,
	ingester *MetadataIngester,
	queue *Queue,
	events interfaces.EventPublisher,
	cfg common.IngestionConfig,
) *Service {
	capacity := cfg.ExecutorQueueCapacity
	if capacity <= 0 {
		capacity = 1
	}
	return &Service{
		cfg:        cfg,
		discoverer: discoverer,
		ingester:   ingester,
		queue:      queue,
		events:     events,
		jobs:       make(map[string]*models.IngestionJob),
		executor:   make(chan struct{}, capacity),
		logger:     common.GetLogger(),
	}
}

// StartSync begins a background sync of the requested folders and returns
// the job id. An empty request syncs all configured sources.
func (s *Service) StartSync(ctx context.Context, req models.SyncRequest) (string, error) {
	folders := s.resolveFolders(req)
	if len(folders) == 0 {
		return "", fmt.Errorf("no source folders configured and none requested")
	}

	select {
	case s.executor <- struct{}{}:
	default:
		return "", fmt.Errorf("sync executor is at capacity (%d running)", cap(s.executor))
	}

	job := models.NewIngestionJob(uuid.NewString())
	s.registerJob(job)
	s.publish(interfaces.JobEvent{Type: interfaces.JobEventStarted, JobID: job.ID})
	s.logger.Info().Str("job_id", job.ID).Int("folders", len(folders)).Msg("Sync started")

	// The job outlives the request that started it.
	common.SafeGo(s.logger, "ingestion.runJob", func() {
		defer func() { <-s.executor }()
		s.runJob(context.Background(), job, folders)
	})

	return job.ID, nil
}

// SyncNode ingests one node synchronously through phase one and queues its
// transformation. Folders are rejected.
func (s *Service) SyncNode(ctx context.Context, nodeID string) error {
	node, err := s.discoverer.source.GetNode(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("fetching node %s: %w", nodeID, err)
	}
	if !node.IsFile {
		return fmt.Errorf("node %s is not a file", nodeID)
	}

	task, err := s.ingester.IngestMetadata(ctx, node)
	if err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("queueing transformation for node %s: %w", nodeID, err)
	}
	s.logger.Info().Str("node_id", nodeID).Str("lake_id", task.LakeID).Msg("Node ingested")
	return nil
}

// GetJob returns a snapshot of the job, or nil when unknown.
func (s *Service) GetJob(jobID string) *models.IngestionJobSnapshot {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	snap := job.Snapshot()
	return &snap
}

// ListJobs returns snapshots of all known jobs, newest first.
func (s *Service) ListJobs() []models.IngestionJobSnapshot {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	snaps := make([]models.IngestionJobSnapshot, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		snaps = append(snaps, s.jobs[s.order[i]].Snapshot())
	}
	return snaps
}

// QueueDepth returns the number of transformation tasks waiting.
func (s *Service) QueueDepth() int { return s.queue.Size() }

// QueueStats returns the transformation queue counters.
func (s *Service) QueueStats() models.QueueStats {
	return models.QueueStats{
		Pending:   s.queue.Pending(),
		Completed: s.queue.Completed(),
		Failed:    s.queue.Failed(),
		QueueSize: s.queue.Size(),
	}
}

// ClearQueue drops all waiting transformation tasks.
func (s *Service) ClearQueue() int {
	removed := s.queue.Clear()
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Cleared transformation queue")
	}
	return removed
}

func (s *Service) resolveFolders(req models.SyncRequest) []common.SourceFolderConfig {
	folders := make([]common.SourceFolderConfig, 0, len(req.Folders))
	for _, f := range req.Folders {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		folders = append(folders, common.SourceFolderConfig{
			Folder:    f,
			Recursive: req.Recursive,
			Types:     req.Types,
			MimeTypes: req.MimeTypes,
		})
	}
	if len(folders) > 0 {
		return folders
	}
	return s.cfg.Sources
}

func (s *Service) registerJob(job *models.IngestionJob) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
}

func (s *Service) runJob(ctx context.Context, job *models.IngestionJob, folders []common.SourceFolderConfig) {
	if err := s.ingester.EnsureRootFolder(ctx); err != nil {
		s.failJob(job, fmt.Errorf("preparing target folder: %w", err))
		return
	}

	for _, folder := range folders {
		err := s.discoverer.Discover(ctx, folder, func(node models.SourceNode) error {
			job.IncrementDiscovered()

			task, err := s.ingester.IngestMetadata(ctx, &node)
			if err != nil {
				job.IncrementFailed()
				s.logger.Error().Err(err).Str("job_id", job.ID).Str("node_id", node.ID).
					Msg("Metadata ingest failed")
				s.publishProgress(job)
				return nil
			}
			task.JobID = job.ID

			// Enqueue blocks while the queue is full, pacing the walk to
			// what the workers can sustain.
			if err := s.queue.Enqueue(ctx, task); err != nil {
				job.IncrementFailed()
				s.logger.Error().Err(err).Str("job_id", job.ID).Str("node_id", node.ID).
					Msg("Could not queue transformation")
				s.publishProgress(job)
				return nil
			}
			job.IncrementIngested()
			s.publishProgress(job)
			return nil
		})
		if err != nil {
			s.failJob(job, fmt.Errorf("discovering %q: %w", folder.Folder, err))
			return
		}
	}

	job.Complete()
	s.publish(interfaces.JobEvent{
		Type:       interfaces.JobEventCompleted,
		JobID:      job.ID,
		Discovered: job.Discovered(),
		Ingested:   job.Ingested(),
		Failed:     job.Failed(),
	})
	s.logger.Info().
		Str("job_id", job.ID).
		Int64("discovered", job.Discovered()).
		Int64("ingested", job.Ingested()).
		Int64("failed", job.Failed()).
		Msg("Sync complete")
}

func (s *Service) failJob(job *models.IngestionJob, err error) {
	job.Fail(err.Error())
	s.publish(interfaces.JobEvent{
		Type:       interfaces.JobEventFailed,
		JobID:      job.ID,
		Discovered: job.Discovered(),
		Ingested:   job.Ingested(),
		Failed:     job.Failed(),
		Error:      err.Error(),
	})
	s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Sync failed")
}

func (s *Service) publishProgress(job *models.IngestionJob) {
	s.publish(interfaces.JobEvent{
		Type:       interfaces.JobEventProgress,
		JobID:      job.ID,
		Discovered: job.Discovered(),
		Ingested:   job.Ingested(),
		Failed:     job.Failed(),
	})
}

func (s *Service) publish(event interfaces.JobEvent) {
	if s.events != nil {
		s.events.Publish(event)
	}
}
