package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []interfaces.JobEvent
}

func (r *recordingEvents) Publish(event interfaces.JobEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEvents) types() []interfaces.JobEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]interfaces.JobEventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

func newSyncService(t *testing.T, src *fakeSourceClient, lk *fakeLakeClient, events interfaces.EventPublisher, cfg common.IngestionConfig) *Service {
	t.Helper()
	d, err := NewDiscoverer(src, cfg.Exclude)
	require.NoError(t, err)
	ingester := NewMetadataIngester(src, lk, common.LakeConfig{TargetPath: "/sync"})
	return NewService(d, ingester, NewQueue(16), events, cfg)
}

// waitForJob polls until the job leaves the running state.
func waitForJob(t *testing.T, s *Service, jobID string) *models.IngestionJobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := s.GetJob(jobID)
		if snap != nil && snap.Status != models.JobStatusRunning {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish")
	return nil
}

func TestService_StartSync(t *testing.T) {
	ctx := context.Background()

	t.Run("syncs a folder end to end", func(t *testing.T) {
		src := treeSource(map[string][]models.SourceNode{
			"root": {
				fileNode("f1", "a.pdf", "application/pdf"),
				fileNode("f2", "b.pdf", "application/pdf"),
			},
		})
		events := &recordingEvents{}
		s := newSyncService(t, src, &fakeLakeClient{}, events, common.IngestionConfig{ExecutorQueueCapacity: 1})

		jobID, err := s.StartSync(ctx, models.SyncRequest{Folders: []string{"root"}})
		require.NoError(t, err)

		snap := waitForJob(t, s, jobID)
		assert.Equal(t, models.JobStatusCompleted, snap.Status)
		assert.Equal(t, int64(2), snap.Discovered)
		assert.Equal(t, int64(2), snap.Ingested)
		assert.Equal(t, int64(0), snap.Failed)
		assert.NotNil(t, snap.CompletedAt)
		assert.Equal(t, 2, s.QueueDepth())
		assert.Equal(t, models.QueueStats{Pending: 2, QueueSize: 2}, s.QueueStats())

		types := events.types()
		assert.Equal(t, interfaces.JobEventStarted, types[0])
		assert.Equal(t, interfaces.JobEventCompleted, types[len(types)-1])
	})

	t.Run("empty folder falls back to configured sources", func(t *testing.T) {
		src := treeSource(map[string][]models.SourceNode{
			"root": {fileNode("f1", "a.pdf", "application/pdf")},
		})
		s := newSyncService(t, src, &fakeLakeClient{}, nil, common.IngestionConfig{
			ExecutorQueueCapacity: 1,
			Sources:               []common.SourceFolderConfig{{Folder: "root", Recursive: true}},
		})

		jobID, err := s.StartSync(ctx, models.SyncRequest{})
		require.NoError(t, err)
		snap := waitForJob(t, s, jobID)
		assert.Equal(t, int64(1), snap.Ingested)
	})

	t.Run("no folders configured is an error", func(t *testing.T) {
		src := treeSource(nil)
		s := newSyncService(t, src, &fakeLakeClient{}, nil, common.IngestionConfig{ExecutorQueueCapacity: 1})

		_, err := s.StartSync(ctx, models.SyncRequest{})
		assert.Error(t, err)
	})

	t.Run("executor at capacity rejects", func(t *testing.T) {
		release := make(chan struct{})
		src := treeSource(map[string][]models.SourceNode{"root": {}})
		src.listChildrenFunc = func(ctx context.Context, nodeID string) ([]models.SourceNode, error) {
			<-release
			return nil, nil
		}
		s := newSyncService(t, src, &fakeLakeClient{}, nil, common.IngestionConfig{ExecutorQueueCapacity: 1})

		first, err := s.StartSync(ctx, models.SyncRequest{Folders: []string{"root"}})
		require.NoError(t, err)

		_, err = s.StartSync(ctx, models.SyncRequest{Folders: []string{"root"}})
		assert.ErrorContains(t, err, "capacity")

		close(release)
		waitForJob(t, s, first)
	})

	t.Run("discovery failure fails the job", func(t *testing.T) {
		src := treeSource(nil)
		src.listChildrenFunc = func(ctx context.Context, nodeID string) ([]models.SourceNode, error) {
			return nil, errors.New("repository unavailable")
		}
		events := &recordingEvents{}
		s := newSyncService(t, src, &fakeLakeClient{}, events, common.IngestionConfig{ExecutorQueueCapacity: 1})

		jobID, err := s.StartSync(ctx, models.SyncRequest{Folders: []string{"root"}})
		require.NoError(t, err)

		snap := waitForJob(t, s, jobID)
		assert.Equal(t, models.JobStatusFailed, snap.Status)
		assert.Contains(t, snap.Error, "repository unavailable")

		types := events.types()
		assert.Equal(t, interfaces.JobEventFailed, types[len(types)-1])
	})

	t.Run("node failures counted without failing the job", func(t *testing.T) {
		src := treeSource(map[string][]models.SourceNode{
			"root": {
				fileNode("f1", "a.pdf", "application/pdf"),
				fileNode("f2", "b.pdf", "application/pdf"),
			},
		})
		lk := &fakeLakeClient{
			createDocumentFunc: func(ctx context.Context, path string, doc *models.LakeDocument) (*models.LakeDocument, error) {
				if doc.SysName == "f1" {
					return nil, errors.New("lake rejected the document")
				}
				created := *doc
				created.SysID = "lake-" + doc.SysName
				return &created, nil
			},
		}
		s := newSyncService(t, src, lk, nil, common.IngestionConfig{ExecutorQueueCapacity: 1})

		jobID, err := s.StartSync(ctx, models.SyncRequest{Folders: []string{"root"}})
		require.NoError(t, err)

		snap := waitForJob(t, s, jobID)
		assert.Equal(t, models.JobStatusCompleted, snap.Status)
		assert.Equal(t, int64(2), snap.Discovered)
		assert.Equal(t, int64(1), snap.Ingested)
		assert.Equal(t, int64(1), snap.Failed)
	})
}

func TestService_SyncNode(t *testing.T) {
	ctx := context.Background()

	t.Run("single file ingested and queued", func(t *testing.T) {
		src := treeSource(nil)
		src.getNodeFunc = func(ctx context.Context, nodeID string) (*models.SourceNode, error) {
			n := fileNode(nodeID, "a.pdf", "application/pdf")
			return &n, nil
		}
		s := newSyncService(t, src, &fakeLakeClient{}, nil, common.IngestionConfig{ExecutorQueueCapacity: 1})

		require.NoError(t, s.SyncNode(ctx, "f1"))
		assert.Equal(t, 1, s.QueueDepth())
	})

	t.Run("folders rejected", func(t *testing.T) {
		src := treeSource(nil)
		s := newSyncService(t, src, &fakeLakeClient{}, nil, common.IngestionConfig{ExecutorQueueCapacity: 1})

		err := s.SyncNode(ctx, "some-folder")
		assert.ErrorContains(t, err, "not a file")
	})
}

func TestService_ListJobs(t *testing.T) {
	src := treeSource(map[string][]models.SourceNode{"root": {}})
	s := newSyncService(t, src, &fakeLakeClient{}, nil, common.IngestionConfig{ExecutorQueueCapacity: 2})

	first, err := s.StartSync(context.Background(), models.SyncRequest{Folders: []string{"root"}})
	require.NoError(t, err)
	waitForJob(t, s, first)

	second, err := s.StartSync(context.Background(), models.SyncRequest{Folders: []string{"root"}})
	require.NoError(t, err)
	waitForJob(t, s, second)

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, second, jobs[0].ID, "newest job first")
	assert.Equal(t, first, jobs[1].ID)

	assert.Nil(t, s.GetJob("unknown"))
}
