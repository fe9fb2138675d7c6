package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

const (
	// noContextAnswer is returned without calling the model when retrieval
	// finds nothing the user may read.
	noContextAnswer = "I couldn't find any relevant documents to answer your question. " +
		"Please try rephrasing your query or ensure the relevant documents have been ingested."

	// contextTruncationMarker is appended when the context block is cut.
	contextTruncationMarker = "\n... (context truncated)"

	userPromptTemplate = "Based on the following document context, answer the question.\n\n" +
		"--- DOCUMENT CONTEXT ---\n%s\n--- END CONTEXT ---\n\nQuestion: %s\n\nAnswer:"
)

// Service orchestrates retrieve, augment, generate. Retrieval reuses the
// permission-filtered search, so answers are grounded only in documents the
// asking user may read.
type Service struct {
	search interfaces.SearchService
	chat   interfaces.ChatService
	cfg    common.RAGConfig
	logger arbor.ILogger
}

// NewService creates the RAG service.
func NewService(search interfaces.SearchService, chat interfaces.ChatService, cfg common.RAGConfig) *Service {
	return &Service{
		search: search,
		chat:   chat,
		cfg:    cfg,
		logger: common.GetLogger(),
	}
}

// Ask runs the full pipeline for a question on behalf of a user.
func (s *Service) Ask(ctx context.Context, username string, req models.RagRequest) (*models.RagResponse, error) {
	totalStart := time.Now()

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = s.cfg.DefaultMinScore
	}

	s.logger.Info().
		Str("question", req.Question).
		Str("user", username).
		Int("top_k", topK).
		Float64("min_score", minScore).
		Msg("RAG retrieve phase")

	searchResp, err := s.search.SemanticSearch(ctx, username, models.SemanticSearchRequest{
		Query:         req.Question,
		TopK:          topK,
		MinScore:      minScore,
		Filter:        req.Filter,
		EmbeddingType: req.EmbeddingType,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	hits := searchResp.Results
	s.logger.Info().Int("chunks", len(hits)).Int64("elapsed_ms", searchResp.SearchTimeMs).
		Msg("RAG retrieve phase complete")

	contextBlock := s.assembleContext(hits)
	systemPrompt := s.resolveSystemPrompt(req)
	userPrompt := fmt.Sprintf(userPromptTemplate, contextBlock, req.Question)

	genStart := time.Now()
	var answer, modelName string

	if len(hits) == 0 {
		answer = noContextAnswer
		modelName = "none (no context available)"
	} else {
		answer, err = s.chat.Chat(ctx, systemPrompt, userPrompt)
		if err != nil {
			s.logger.Error().Err(err).Msg("LLM generation failed")
			answer = "An error occurred while generating the answer: " + err.Error()
			modelName = "error"
		} else {
			modelName = s.chat.ModelName()
			s.logger.Info().Str("model", modelName).Int("answer_length", len(answer)).
				Msg("RAG generate phase complete")
		}
	}

	generationTime := time.Since(genStart).Milliseconds()

	sources := make([]models.RagSource, 0, len(hits))
	for _, hit := range hits {
		src := models.RagSource{
			ChunkText: hit.ChunkText,
			Score:     hit.Score,
		}
		if hit.SourceDocument != nil {
			src.DocumentID = hit.SourceDocument.DocumentID
			src.NodeID = hit.SourceDocument.NodeID
			src.Name = hit.SourceDocument.Name
			src.Path = hit.SourceDocument.Path
		}
		sources = append(sources, src)
	}

	var contextChunks []models.RagContextChunk
	if req.IncludeContext {
		contextChunks = make([]models.RagContextChunk, 0, len(hits))
		for _, hit := range hits {
			cc := models.RagContextChunk{
				Rank:  hit.Rank,
				Score: hit.Score,
				Text:  hit.ChunkText,
			}
			if hit.SourceDocument != nil {
				cc.SourceName = hit.SourceDocument.Name
				cc.SourcePath = hit.SourceDocument.Path
			}
			contextChunks = append(contextChunks, cc)
		}
	}

	return &models.RagResponse{
		Answer:           answer,
		Question:         req.Question,
		Model:            modelName,
		SearchTimeMs:     searchResp.SearchTimeMs,
		GenerationTimeMs: generationTime,
		TotalTimeMs:      time.Since(totalStart).Milliseconds(),
		SourcesUsed:      len(sources),
		Sources:          sources,
		Context:          contextChunks,
	}, nil
}

// assembleContext concatenates chunk texts with source attribution, capped
// at the configured context length. A chunk that does not fit is truncated
// only when at least 100 characters of it remain.
func (s *Service) assembleContext(hits []models.SearchHit) string {
	if len(hits) == 0 {
		return ""
	}

	maxLength := s.cfg.MaxContextLength
	var context strings.Builder
	chunkIndex := 1

	for _, hit := range hits {
		sourceName := "Unknown document"
		if hit.SourceDocument != nil && hit.SourceDocument.Name != "" {
			sourceName = hit.SourceDocument.Name
		}

		entry := fmt.Sprintf("[Source %d: %s (score: %.2f)]\n%s\n\n",
			chunkIndex, sourceName, hit.Score, hit.ChunkText)
		chunkIndex++

		if context.Len()+len(entry) > maxLength {
			remaining := maxLength - context.Len()
			if remaining > 100 {
				context.WriteString(entry[:remaining])
				context.WriteString(contextTruncationMarker)
			}
			break
		}
		context.WriteString(entry)
	}

	return strings.TrimSpace(context.String())
}

func (s *Service) resolveSystemPrompt(req models.RagRequest) string {
	if strings.TrimSpace(req.SystemPrompt) != "" {
		return req.SystemPrompt
	}
	if strings.TrimSpace(s.cfg.DefaultSystemPrompt) != "" {
		return s.cfg.DefaultSystemPrompt
	}
	return common.DefaultSystemPrompt
}
