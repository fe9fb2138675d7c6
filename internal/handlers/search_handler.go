package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

// SearchHandler handles semantic search HTTP requests
type SearchHandler struct {
	search interfaces.SearchService
	logger arbor.ILogger
	checks []DependencyCheck
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search interfaces.SearchService, logger arbor.ILogger, checks ...DependencyCheck) *SearchHandler {
	return &SearchHandler{
		search: search,
		logger: logger,
		checks: checks,
	}
}

// HealthHandler handles GET /api/search/semantic/health requests with a
// composite status of the search dependencies.
func (h *SearchHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	writeCompositeHealth(w, r, h.checks)
}

// SearchHandler handles POST /api/search/semantic requests. Results are
// filtered to documents the authenticated user is allowed to read.
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.SemanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteJSON(w, http.StatusBadRequest, &models.SemanticSearchResponse{
			Query:   req.Query,
			Results: []models.SearchHit{},
		})
		return
	}

	username := UsernameFromContext(r.Context())
	if username == "" {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	resp, err := h.search.SemanticSearch(r.Context(), username, req)
	if err != nil {
		h.logger.Error().Err(err).Str("user", username).Msg("Semantic search failed")
		WriteError(w, http.StatusInternalServerError, "Search failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}
