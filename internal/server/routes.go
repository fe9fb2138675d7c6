package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (job events)
	mux.HandleFunc("/ws", s.app.EventsHandler.HandleWebSocket)

	// API routes - Ingestion
	mux.HandleFunc("/api/sync/batch", s.app.SyncHandler.StartSyncHandler)           // POST - sync requested folders
	mux.HandleFunc("/api/sync/configured", s.app.SyncHandler.ConfiguredSyncHandler) // POST - sync configured sources
	mux.HandleFunc("/api/sync/nodes/", s.app.SyncHandler.SyncNodeHandler)           // POST /{id} - sync one node
	mux.HandleFunc("/api/sync/queue", s.app.SyncHandler.ClearQueueHandler)          // DELETE - drop waiting tasks
	mux.HandleFunc("/api/sync/status", s.app.SyncHandler.SyncStatusHandler)         // GET - jobs + queue counters
	mux.HandleFunc("/api/sync/status/", s.handleJobRoutes)                          // GET /{id} - job status

	// API routes - Retrieval
	mux.HandleFunc("/api/search/semantic", s.app.SearchHandler.SearchHandler)       // POST - semantic search
	mux.HandleFunc("/api/search/semantic/health", s.app.SearchHandler.HealthHandler) // GET - composite health
	mux.HandleFunc("/api/rag/prompt", s.app.RagHandler.AskHandler)                  // POST - RAG question
	mux.HandleFunc("/api/rag/health", s.app.RagHandler.HealthHandler)               // GET - composite health

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/actuator/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/actuator/info", s.app.StatusHandler.VersionHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.StatusHandler.NotFoundHandler)

	return mux
}

// handleJobRoutes routes /api/sync/status/{id} requests
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.TrimPrefix(r.URL.Path, "/api/sync/status/") == "" {
		s.app.SyncHandler.SyncStatusHandler(w, r)
		return
	}
	s.app.SyncHandler.GetJobHandler(w, r)
}
