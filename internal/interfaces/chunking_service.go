package interfaces

import "github.com/ternarybob/lacuna/internal/models"

// ChunkingService splits extracted document text into embedding-sized
// chunks. Offsets in the returned chunks refer to the noise-reduced text.
type ChunkingService interface {
	// ChunkDocument cleans the text and splits it structure-first, falling
	// back to fixed windows when no structure is found.
	ChunkDocument(nodeID, text string) []models.Chunk
}
