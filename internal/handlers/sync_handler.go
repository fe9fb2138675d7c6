package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

// SyncHandler handles ingestion sync HTTP requests
type SyncHandler struct {
	ingestion interfaces.IngestionService
	logger    arbor.ILogger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(ingestion interfaces.IngestionService, logger arbor.ILogger) *SyncHandler {
	return &SyncHandler{
		ingestion: ingestion,
		logger:    logger,
	}
}

// StartSyncHandler handles POST /api/sync/batch requests. An empty body or
// empty folders list syncs all configured sources.
func (h *SyncHandler) StartSyncHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.SyncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	h.startSync(w, r, req)
}

// ConfiguredSyncHandler handles POST /api/sync/configured requests, syncing
// all sources from configuration.
func (h *SyncHandler) ConfiguredSyncHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	h.startSync(w, r, models.SyncRequest{})
}

func (h *SyncHandler) startSync(w http.ResponseWriter, r *http.Request, req models.SyncRequest) {
	jobID, err := h.ingestion.StartSync(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Strs("folders", req.Folders).Msg("Failed to start sync")
		WriteError(w, http.StatusConflict, "Failed to start sync: "+err.Error())
		return
	}

	if job := h.ingestion.GetJob(jobID); job != nil {
		WriteStarted(w, job)
		return
	}
	WriteStarted(w, map[string]string{
		"status": "started",
		"jobId":  jobID,
	})
}

// SyncNodeHandler handles POST /api/sync/nodes/{id} requests, ingesting a
// single node synchronously.
func (h *SyncHandler) SyncNodeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	nodeID := strings.TrimPrefix(r.URL.Path, "/api/sync/nodes/")
	if nodeID == "" || strings.Contains(nodeID, "/") {
		WriteError(w, http.StatusBadRequest, "Node id is required")
		return
	}

	if err := h.ingestion.SyncNode(r.Context(), nodeID); err != nil {
		h.logger.Error().Err(err).Str("node_id", nodeID).Msg("Failed to sync node")
		WriteError(w, http.StatusInternalServerError, "Failed to sync node: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"nodeId": nodeID,
	})
}

// ClearQueueHandler handles DELETE /api/sync/queue requests, dropping all
// waiting transformation tasks. In-flight tasks run to completion.
func (h *SyncHandler) ClearQueueHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	removed := h.ingestion.ClearQueue()
	h.logger.Info().Int("removed", removed).Msg("Transformation queue cleared")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "cleared",
		"removed": removed,
	})
}

// GetJobHandler handles GET /api/sync/status/{id} requests
func (h *SyncHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job id is required")
		return
	}

	job := h.ingestion.GetJob(jobID)
	if job == nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// SyncStatusHandler handles GET /api/sync/status requests, returning all
// known jobs plus the transformation queue counters.
func (h *SyncHandler) SyncStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  h.ingestion.ListJobs(),
		"queue": h.ingestion.QueueStats(),
	})
}
