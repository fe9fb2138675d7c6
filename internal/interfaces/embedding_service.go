package interfaces

import (
	"context"

	"github.com/ternarybob/lacuna/internal/models"
)

// EmbeddingService generates vector embeddings
type EmbeddingService interface {
	// Generate embedding for raw passage text
	EmbedText(ctx context.Context, text string) ([]float64, error)

	// Generate query embedding (uses a retrieval prompt prefix when configured)
	EmbedQuery(ctx context.Context, query string) ([]float64, error)

	// Embed a document's chunks, optionally conditioning each chunk on a
	// short document context string. The context influences the vector only;
	// stored chunk text stays as chunked.
	EmbedChunks(ctx context.Context, chunks []models.Chunk, docContext string) ([]models.Embedding, error)

	// Get model information
	ModelName() string
	Dimension() int
}
