package models

// RagRequest is the body of POST /api/rag/prompt.
type RagRequest struct {
	Question       string  `json:"question"`
	TopK           int     `json:"topK,omitempty"`
	MinScore       float64 `json:"minScore,omitempty"`
	Filter         string  `json:"filter,omitempty"`
	EmbeddingType  string  `json:"embeddingType,omitempty"`
	SystemPrompt   string  `json:"systemPrompt,omitempty"`
	IncludeContext bool    `json:"includeContext,omitempty"`
}

// RagResponse carries the generated answer plus the retrieval evidence.
// Context is only populated when the request asked for it.
type RagResponse struct {
	Answer           string            `json:"answer"`
	Question         string            `json:"question"`
	Model            string            `json:"model"`
	SearchTimeMs     int64             `json:"searchTimeMs"`
	GenerationTimeMs int64             `json:"generationTimeMs"`
	TotalTimeMs      int64             `json:"totalTimeMs"`
	SourcesUsed      int               `json:"sourcesUsed"`
	Sources          []RagSource       `json:"sources"`
	Context          []RagContextChunk `json:"context,omitempty"`
}

// RagSource is the citation view of a search hit used to build the context.
type RagSource struct {
	DocumentID string  `json:"documentId,omitempty"`
	NodeID     string  `json:"nodeId,omitempty"`
	Name       string  `json:"name,omitempty"`
	Path       string  `json:"path,omitempty"`
	ChunkText  string  `json:"chunkText,omitempty"`
	Score      float64 `json:"score"`
}

// RagContextChunk is one retrieved chunk echoed back for debugging.
type RagContextChunk struct {
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	Text       string  `json:"text,omitempty"`
	SourceName string  `json:"sourceName,omitempty"`
	SourcePath string  `json:"sourcePath,omitempty"`
}
