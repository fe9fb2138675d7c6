package chunking

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

// Service cleans extracted text and splits it with the adaptive strategy.
type Service struct {
	reducer *NoiseReducer
	minSize int
	maxSize int
	logger  arbor.ILogger
}

// NewService creates the chunking service from embedding configuration.
func NewService(cfg common.EmbeddingConfig) *Service {
	return &Service{
		reducer: NewNoiseReducer(true),
		minSize: cfg.MinChunkSize,
		maxSize: cfg.MaxChunkSize,
		logger:  common.GetLogger(),
	}
}

// ChunkDocument runs noise reduction then adaptive chunking. Offsets in the
// returned chunks refer to the cleaned text.
func (s *Service) ChunkDocument(nodeID, text string) []models.Chunk {
	cleaned := s.reducer.Clean(text)
	if cleaned == "" {
		if text != "" {
			s.logger.Warn().Str("node_id", nodeID).Msg("Text empty after noise reduction")
		}
		return nil
	}

	chunks := chunkAdaptive(cleaned, nodeID, s.minSize, s.maxSize)
	s.logger.Info().
		Str("node_id", nodeID).
		Int("text_length", len(cleaned)).
		Int("chunks", len(chunks)).
		Msg("Chunked document")
	return chunks
}
