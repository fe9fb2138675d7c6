package models

// SemanticSearchRequest is the body of POST /api/search/semantic.
type SemanticSearchRequest struct {
	Query         string  `json:"query"`
	TopK          int     `json:"topK,omitempty"`
	MinScore      float64 `json:"minScore,omitempty"`
	Filter        string  `json:"filter,omitempty"`
	EmbeddingType string  `json:"embeddingType,omitempty"`
}

// SemanticSearchResponse is the body returned to the caller.
type SemanticSearchResponse struct {
	Query           string      `json:"query"`
	Model           string      `json:"model"`
	VectorDimension int         `json:"vectorDimension"`
	ResultCount     int         `json:"resultCount"`
	TotalCount      int64       `json:"totalCount"`
	SearchTimeMs    int64       `json:"searchTimeMs"`
	Results         []SearchHit `json:"results"`
}

// SearchHit is one permission-filtered, score-thresholded result.
type SearchHit struct {
	Rank           int                `json:"rank"`
	Score          float64            `json:"score"`
	ChunkText      string             `json:"chunkText"`
	SourceDocument *SourceDocumentRef `json:"sourceDocument,omitempty"`
	ChunkMetadata  *ChunkMetadata     `json:"chunkMetadata,omitempty"`
}

// ChunkMetadata describes the matched chunk itself.
type ChunkMetadata struct {
	EmbeddingID   string `json:"embeddingId,omitempty"`
	EmbeddingType string `json:"embeddingType,omitempty"`
	ChunkLength   int    `json:"chunkLength"`
	Page          *int   `json:"page,omitempty"`
	Paragraph     *int   `json:"paragraph,omitempty"`
}

// SourceDocumentRef identifies the parent document of a hit. When the lake
// document cannot be resolved only DocumentID is populated.
type SourceDocumentRef struct {
	DocumentID string `json:"documentId"`
	NodeID     string `json:"nodeId,omitempty"`
	Name       string `json:"name,omitempty"`
	Path       string `json:"path,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}
