package chunking

import (
	"fmt"
	"strings"

	"github.com/ternarybob/lacuna/internal/models"
)

// FixedChunker is a plain sliding-window chunker. It survives as the
// fallback for callers that want deterministic window sizes instead of the
// adaptive strategy.
type FixedChunker struct {
	chunkSize int
	overlap   int
}

// NewFixedChunker validates the window parameters. Overlap must stay below
// the chunk size or the window could stop advancing.
func NewFixedChunker(chunkSize, overlap int) (*FixedChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunkSize must be > 0, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be >= 0, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be < chunkSize, got overlap=%d chunkSize=%d", overlap, chunkSize)
	}
	return &FixedChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits text into overlapping windows, snapping window ends to the
// last space so words are not cut.
func (c *FixedChunker) Chunk(text, nodeID string) []models.Chunk {
	var chunks []models.Chunk
	if strings.TrimSpace(text) == "" {
		return chunks
	}

	start := 0
	index := 0

	for start < len(text) {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			if lastSpace := strings.LastIndex(text[:end], " "); lastSpace > start {
				end = lastSpace
			}
		}

		if chunkText := strings.TrimSpace(text[start:end]); chunkText != "" {
			chunks = append(chunks, models.NewChunk(nodeID, chunkText, index, start, end))
			index++
		}

		if end == len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}
