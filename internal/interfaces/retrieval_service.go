package interfaces

import (
	"context"

	"github.com/ternarybob/lacuna/internal/models"
)

// SearchService runs permission-filtered semantic searches on behalf of an
// authenticated user.
type SearchService interface {
	SemanticSearch(ctx context.Context, username string, req models.SemanticSearchRequest) (*models.SemanticSearchResponse, error)
}

// RagService answers questions grounded in retrieved document chunks.
type RagService interface {
	Ask(ctx context.Context, username string, req models.RagRequest) (*models.RagResponse, error)
}
