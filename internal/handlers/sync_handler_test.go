package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

type fakeIngestionService struct {
	startSyncFunc func(ctx context.Context, req models.SyncRequest) (string, error)
	syncNodeFunc  func(ctx context.Context, nodeID string) error
	getJobFunc    func(jobID string) *models.IngestionJobSnapshot
	listJobsFunc  func() []models.IngestionJobSnapshot
	queueDepth    int
	cleared       int
}

func (f *fakeIngestionService) StartSync(ctx context.Context, req models.SyncRequest) (string, error) {
	if f.startSyncFunc != nil {
		return f.startSyncFunc(ctx, req)
	}
	return "job-1", nil
}

func (f *fakeIngestionService) SyncNode(ctx context.Context, nodeID string) error {
	if f.syncNodeFunc != nil {
		return f.syncNodeFunc(ctx, nodeID)
	}
	return nil
}

func (f *fakeIngestionService) GetJob(jobID string) *models.IngestionJobSnapshot {
	if f.getJobFunc != nil {
		return f.getJobFunc(jobID)
	}
	return nil
}

func (f *fakeIngestionService) ListJobs() []models.IngestionJobSnapshot {
	if f.listJobsFunc != nil {
		return f.listJobsFunc()
	}
	return nil
}

func (f *fakeIngestionService) QueueDepth() int { return f.queueDepth }

func (f *fakeIngestionService) QueueStats() models.QueueStats {
	return models.QueueStats{QueueSize: f.queueDepth}
}

func (f *fakeIngestionService) ClearQueue() int { return f.cleared }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestSyncHandler_StartSync(t *testing.T) {
	t.Run("starts with empty body", func(t *testing.T) {
		var gotReq models.SyncRequest
		svc := &fakeIngestionService{
			startSyncFunc: func(ctx context.Context, req models.SyncRequest) (string, error) {
				gotReq = req
				return "job-1", nil
			},
		}
		h := NewSyncHandler(svc, common.GetLogger())

		rec := httptest.NewRecorder()
		h.StartSyncHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync/batch", nil))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, gotReq.Folders)
		body := decodeBody(t, rec)
		assert.Equal(t, "started", body["status"])
		assert.Equal(t, "job-1", body["jobId"])
	})

	t.Run("started job returned when known", func(t *testing.T) {
		svc := &fakeIngestionService{
			getJobFunc: func(jobID string) *models.IngestionJobSnapshot {
				return &models.IngestionJobSnapshot{ID: jobID, Status: models.JobStatusRunning}
			},
		}
		h := NewSyncHandler(svc, common.GetLogger())

		rec := httptest.NewRecorder()
		h.StartSyncHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync/batch", nil))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "job-1", body["id"])
		assert.Equal(t, string(models.JobStatusRunning), body["status"])
	})

	t.Run("folders and filters forwarded", func(t *testing.T) {
		var gotReq models.SyncRequest
		svc := &fakeIngestionService{
			startSyncFunc: func(ctx context.Context, req models.SyncRequest) (string, error) {
				gotReq = req
				return "job-1", nil
			},
		}
		h := NewSyncHandler(svc, common.GetLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/sync/batch",
			strings.NewReader(`{"folders":["/Sites/docs","/Sites/wiki"],"recursive":true,
				"types":["acme:invoice"],"mimeTypes":["application/pdf"]}`))
		rec := httptest.NewRecorder()
		h.StartSyncHandler(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, []string{"/Sites/docs", "/Sites/wiki"}, gotReq.Folders)
		assert.True(t, gotReq.Recursive)
		assert.Equal(t, []string{"acme:invoice"}, gotReq.Types)
		assert.Equal(t, []string{"application/pdf"}, gotReq.MimeTypes)
	})

	t.Run("executor at capacity yields conflict", func(t *testing.T) {
		svc := &fakeIngestionService{
			startSyncFunc: func(ctx context.Context, req models.SyncRequest) (string, error) {
				return "", errors.New("sync executor is at capacity")
			},
		}
		h := NewSyncHandler(svc, common.GetLogger())

		rec := httptest.NewRecorder()
		h.StartSyncHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync/batch", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("get rejected", func(t *testing.T) {
		h := NewSyncHandler(&fakeIngestionService{}, common.GetLogger())
		rec := httptest.NewRecorder()
		h.StartSyncHandler(rec, httptest.NewRequest(http.MethodGet, "/api/sync/batch", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		h := NewSyncHandler(&fakeIngestionService{}, common.GetLogger())
		req := httptest.NewRequest(http.MethodPost, "/api/sync/batch", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		h.StartSyncHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSyncHandler_ConfiguredSync(t *testing.T) {
	var gotReq models.SyncRequest
	svc := &fakeIngestionService{
		startSyncFunc: func(ctx context.Context, req models.SyncRequest) (string, error) {
			gotReq = req
			return "job-1", nil
		},
	}
	h := NewSyncHandler(svc, common.GetLogger())

	rec := httptest.NewRecorder()
	h.ConfiguredSyncHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync/configured", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, gotReq.Folders)
}

func TestSyncHandler_SyncNode(t *testing.T) {
	t.Run("node id from path", func(t *testing.T) {
		var gotNode string
		svc := &fakeIngestionService{
			syncNodeFunc: func(ctx context.Context, nodeID string) error {
				gotNode = nodeID
				return nil
			},
		}
		h := NewSyncHandler(svc, common.GetLogger())

		rec := httptest.NewRecorder()
		h.SyncNodeHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync/nodes/node-1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "node-1", gotNode)
	})

	t.Run("missing node id", func(t *testing.T) {
		h := NewSyncHandler(&fakeIngestionService{}, common.GetLogger())
		rec := httptest.NewRecorder()
		h.SyncNodeHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync/nodes/", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("sync failure is a server error", func(t *testing.T) {
		svc := &fakeIngestionService{
			syncNodeFunc: func(ctx context.Context, nodeID string) error {
				return errors.New("node is not a file")
			},
		}
		h := NewSyncHandler(svc, common.GetLogger())
		rec := httptest.NewRecorder()
		h.SyncNodeHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync/nodes/folder-1", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestSyncHandler_ClearQueue(t *testing.T) {
	t.Run("reports removed count", func(t *testing.T) {
		h := NewSyncHandler(&fakeIngestionService{cleared: 4}, common.GetLogger())
		rec := httptest.NewRecorder()
		h.ClearQueueHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/sync/queue", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "cleared", body["status"])
		assert.Equal(t, float64(4), body["removed"])
	})

	t.Run("post rejected", func(t *testing.T) {
		h := NewSyncHandler(&fakeIngestionService{}, common.GetLogger())
		rec := httptest.NewRecorder()
		h.ClearQueueHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync/queue", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestSyncHandler_Jobs(t *testing.T) {
	t.Run("get job", func(t *testing.T) {
		svc := &fakeIngestionService{
			getJobFunc: func(jobID string) *models.IngestionJobSnapshot {
				if jobID == "job-1" {
					return &models.IngestionJobSnapshot{ID: "job-1", Status: models.JobStatusCompleted}
				}
				return nil
			},
		}
		h := NewSyncHandler(svc, common.GetLogger())

		rec := httptest.NewRecorder()
		h.GetJobHandler(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status/job-1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "job-1", decodeBody(t, rec)["id"])
	})

	t.Run("unknown job is 404", func(t *testing.T) {
		h := NewSyncHandler(&fakeIngestionService{}, common.GetLogger())
		rec := httptest.NewRecorder()
		h.GetJobHandler(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("status lists jobs with queue counters", func(t *testing.T) {
		svc := &fakeIngestionService{
			listJobsFunc: func() []models.IngestionJobSnapshot {
				return []models.IngestionJobSnapshot{{ID: "job-2"}, {ID: "job-1"}}
			},
			queueDepth: 7,
		}
		h := NewSyncHandler(svc, common.GetLogger())

		rec := httptest.NewRecorder()
		h.SyncStatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		queue, ok := body["queue"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(7), queue["queueSize"])
		assert.Len(t, body["jobs"], 2)
	})
}
