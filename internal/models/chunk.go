package models

import "fmt"

// Chunk is an offset-tagged substring of a document's extracted text.
// Offsets refer to the post-noise-reduction text the chunker ran over.
type Chunk struct {
	ID          string `json:"id"`
	NodeID      string `json:"nodeId"`
	Text        string `json:"text"`
	Index       int    `json:"index"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

// NewChunk assigns the conventional id <nodeId>_chunk_<index>.
func NewChunk(nodeID, text string, index, startOffset, endOffset int) Chunk {
	return Chunk{
		ID:          fmt.Sprintf("%s_chunk_%d", nodeID, index),
		NodeID:      nodeID,
		Text:        text,
		Index:       index,
		StartOffset: startOffset,
		EndOffset:   endOffset,
	}
}
