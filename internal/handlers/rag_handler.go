package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

// RagHandler handles retrieval-augmented generation HTTP requests
type RagHandler struct {
	rag    interfaces.RagService
	logger arbor.ILogger
	checks []DependencyCheck
}

// NewRagHandler creates a new RAG handler
func NewRagHandler(rag interfaces.RagService, logger arbor.ILogger, checks ...DependencyCheck) *RagHandler {
	return &RagHandler{
		rag:    rag,
		logger: logger,
		checks: checks,
	}
}

// HealthHandler handles GET /api/rag/health requests with a composite
// status of the RAG dependencies.
func (h *RagHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	writeCompositeHealth(w, r, h.checks)
}

// AskHandler handles POST /api/rag/prompt requests. Retrieval runs as the
// authenticated user, so the answer only draws on documents they may read.
func (h *RagHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.RagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "Question field is required")
		return
	}

	username := UsernameFromContext(r.Context())
	if username == "" {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	resp, err := h.rag.Ask(r.Context(), username, req)
	if err != nil {
		h.logger.Error().Err(err).Str("user", username).Msg("RAG request failed")
		WriteError(w, http.StatusInternalServerError, "Failed to generate answer: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}
