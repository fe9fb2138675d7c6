package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
)

// StatusHandler handles application status and health HTTP requests
type StatusHandler struct {
	ingestion interfaces.IngestionService
	startedAt time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(ingestion interfaces.IngestionService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		ingestion: ingestion,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// GetStatusHandler handles GET /api/status requests
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobs := h.ingestion.ListJobs()
	running := 0
	for _, j := range jobs {
		if j.Status == "RUNNING" {
			running++
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":     common.GetVersion(),
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"queueDepth":  h.ingestion.QueueDepth(),
		"totalJobs":   len(jobs),
		"runningJobs": running,
	})
}

// HealthHandler handles GET /api/health requests
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": common.GetVersion(),
	})
}

// VersionHandler handles GET /api/version requests
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetFullVersion(),
	})
}

// NotFoundHandler handles unmatched API routes
func (h *StatusHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not found")
}
