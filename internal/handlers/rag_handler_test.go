package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

type fakeRagService struct {
	askFunc func(ctx context.Context, username string, req models.RagRequest) (*models.RagResponse, error)
}

func (f *fakeRagService) Ask(ctx context.Context, username string, req models.RagRequest) (*models.RagResponse, error) {
	return f.askFunc(ctx, username, req)
}

func TestRagHandler_Ask(t *testing.T) {
	t.Run("asks as the authenticated user", func(t *testing.T) {
		var gotUser string
		svc := &fakeRagService{
			askFunc: func(ctx context.Context, username string, req models.RagRequest) (*models.RagResponse, error) {
				gotUser = username
				assert.Equal(t, "What changed last quarter?", req.Question)
				return &models.RagResponse{Answer: "Quite a lot.", Question: req.Question}, nil
			},
		}
		h := NewRagHandler(svc, common.GetLogger())

		req := authenticated(httptest.NewRequest(http.MethodPost, "/api/rag/prompt",
			strings.NewReader(`{"question":"What changed last quarter?"}`)), "jsmith")
		rec := httptest.NewRecorder()
		h.AskHandler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jsmith", gotUser)
		assert.Equal(t, "Quite a lot.", decodeBody(t, rec)["answer"])
	})

	t.Run("missing question rejected", func(t *testing.T) {
		h := NewRagHandler(&fakeRagService{}, common.GetLogger())
		req := authenticated(httptest.NewRequest(http.MethodPost, "/api/rag/prompt",
			strings.NewReader(`{}`)), "jsmith")
		rec := httptest.NewRecorder()
		h.AskHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated request rejected", func(t *testing.T) {
		h := NewRagHandler(&fakeRagService{}, common.GetLogger())
		req := httptest.NewRequest(http.MethodPost, "/api/rag/prompt",
			strings.NewReader(`{"question":"anything"}`))
		rec := httptest.NewRecorder()
		h.AskHandler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
