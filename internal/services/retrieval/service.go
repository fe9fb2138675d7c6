package retrieval

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

const (
	// maxTopK caps how many hits a single search may request.
	maxTopK = 50

	// fallbackMinScore is used when neither request nor config supply one.
	fallbackMinScore = 0.5
)

var uuidRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Service executes permission-aware semantic searches: embed the query,
// expand the user's authorities, filter the vector index on sys_racl, and
// enrich hits with parent document metadata.
type Service struct {
	lake            interfaces.LakeClient
	embedder        interfaces.EmbeddingService
	source          interfaces.SourceClient
	defaultMinScore float64
	logger          arbor.ILogger
}

// NewService creates the search service.
func NewService(lake interfaces.LakeClient, embedder interfaces.EmbeddingService,
	source interfaces.SourceClient, cfg common.SearchConfig) *Service {
	return &Service{
		lake:            lake,
		embedder:        embedder,
		source:          source,
		defaultMinScore: cfg.DefaultMinScore,
		logger:          common.GetLogger(),
	}
}

// SemanticSearch runs the search on behalf of the authenticated user.
func (s *Service) SemanticSearch(ctx context.Context, username string, req models.SemanticSearchRequest) (*models.SemanticSearchResponse, error) {
	start := time.Now()

	topK := req.TopK
	if topK < 1 {
		topK = 1
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	minScore := s.resolveMinScore(req.MinScore)

	s.logger.Info().
		Str("query", req.Query).
		Str("user", username).
		Int("top_k", topK).
		Float64("min_score", minScore).
		Msg("Embedding search query")

	queryVector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(queryVector) == 0 {
		s.logger.Warn().Str("query", req.Query).Msg("Empty embedding vector for query")
		return s.emptyResponse(req.Query, 0, start), nil
	}

	filter, err := s.buildPermissionFilter(ctx, username, req.Filter)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("filter", filter).Msg("Executing vector search")
	result, err := s.lake.VectorSearch(ctx, models.VectorQuery{
		Vector:        queryVector,
		EmbeddingType: req.EmbeddingType,
		Query:         filter,
		Limit:         int64(topK),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		s.logger.Info().Str("query", req.Query).Msg("No results for query")
		return s.emptyResponse(req.Query, len(queryVector), start), nil
	}

	documents := s.fetchDocumentMetadata(ctx, result.Embeddings)
	hits := buildSearchHits(result.Embeddings, documents, minScore)

	totalCount := result.TotalCount
	if totalCount == 0 {
		totalCount = int64(len(hits))
	}

	searchTime := time.Since(start).Milliseconds()
	s.logger.Info().
		Str("query", req.Query).
		Int("results", len(hits)).
		Int64("elapsed_ms", searchTime).
		Msg("Semantic search completed")

	return &models.SemanticSearchResponse{
		Query:           req.Query,
		Model:           s.embedder.ModelName(),
		VectorDimension: len(queryVector),
		ResultCount:     len(hits),
		TotalCount:      totalCount,
		SearchTimeMs:    searchTime,
		Results:         hits,
	}, nil
}

func (s *Service) resolveMinScore(requested float64) float64 {
	v := requested
	if math.IsNaN(v) || v <= 0 {
		v = s.defaultMinScore
	}
	if math.IsNaN(v) {
		return fallbackMinScore
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// buildPermissionFilter builds the HXQL query that restricts hits to
// documents the user's authorities may read.
func (s *Service) buildPermissionFilter(ctx context.Context, username, additionalFilter string) (string, error) {
	authorities := s.userAuthorities(ctx, username)

	seen := make(map[string]struct{})
	var distinct []string
	for _, a := range authorities {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		distinct = append(distinct, a)
	}

	repoID, err := s.source.RepositoryID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve source repository id: %w", err)
	}
	suffix := "_#_" + repoID

	clauses := []string{raclClause(models.EveryonePrinc)}
	if len(distinct) > 0 {
		for _, authority := range distinct {
			switch {
			case authority == "GROUP_EVERYONE":
				// Already covered by the everyone principal.
			case strings.HasPrefix(authority, models.GroupAuthPrefix):
				clauses = append(clauses, raclClause("g:"+authority+suffix))
			default:
				clauses = append(clauses, raclClause(authority+suffix))
			}
		}
	} else {
		clauses = append(clauses, raclClause(username+suffix))
	}

	conditions := []string{"(" + strings.Join(clauses, " OR ") + ")"}
	if f := strings.TrimSpace(additionalFilter); f != "" {
		conditions = append(conditions, "("+f+")")
	}

	return "SELECT * FROM SysContent WHERE " + strings.Join(conditions, " AND "), nil
}

func raclClause(value string) string {
	return "sys_racl = '" + escapeHxql(value) + "'"
}

func escapeHxql(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// userAuthorities returns username plus GROUP_EVERYONE plus the user's
// groups. A group lookup failure degrades to the first two rather than
// failing the search.
func (s *Service) userAuthorities(ctx context.Context, username string) []string {
	authorities := []string{username, "GROUP_EVERYONE"}

	groups, err := s.source.ListUserGroups(ctx, username)
	if err != nil {
		s.logger.Warn().Err(err).Str("user", username).
			Msg("Failed to retrieve groups, proceeding with username only")
		return authorities
	}
	return append(authorities, groups...)
}

// fetchDocumentMetadata resolves each distinct parent document id to its
// source metadata. Lookup failures leave the hit with a bare document id.
func (s *Service) fetchDocumentMetadata(ctx context.Context, hits []models.VectorHit) map[string]*models.SourceDocumentRef {
	cache := make(map[string]*models.SourceDocumentRef)

	seen := make(map[string]struct{})
	for _, hit := range hits {
		id := hit.DocumentID
		if id == "" || !looksLikeUUID(id) {
			continue
		}
		seen[id] = struct{}{}
	}
	if len(seen) == 0 {
		return cache
	}

	for docID := range seen {
		result, err := s.lake.Query(ctx, models.LakeQuery{
			Query: "SELECT * FROM SysContent WHERE sys_id = '" + escapeHxql(docID) + "'",
			Limit: 1,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("document_id", docID).Msg("Failed to fetch document metadata")
			continue
		}
		if len(result.Documents) == 0 {
			continue
		}
		cache[docID] = buildSourceDocumentRef(docID, &result.Documents[0])
	}

	return cache
}

func buildSourceDocumentRef(docID string, doc *models.LakeDocument) *models.SourceDocumentRef {
	ref := &models.SourceDocumentRef{DocumentID: docID}

	if doc.CinID != "" {
		ref.NodeID = doc.CinID
	} else {
		ref.NodeID = doc.SysName
	}
	if len(doc.CinPaths) > 0 {
		ref.Path = doc.CinPaths[0]
	}
	if doc.CinIngestProperties != nil {
		if name, ok := doc.CinIngestProperties["source_name"]; ok && name != nil {
			ref.Name = fmt.Sprint(name)
		}
		if mime, ok := doc.CinIngestProperties["source_mimeType"]; ok && mime != nil {
			ref.MimeType = fmt.Sprint(mime)
		}
	}
	return ref
}

// buildSearchHits ranks hits, applies the score threshold, and attaches
// document and chunk metadata.
func buildSearchHits(embeddings []models.VectorHit, documents map[string]*models.SourceDocumentRef, minScore float64) []models.SearchHit {
	hits := make([]models.SearchHit, 0, len(embeddings))
	rank := 1

	for _, e := range embeddings {
		if e.Score < minScore {
			continue
		}

		meta := &models.ChunkMetadata{
			EmbeddingID:   e.ID,
			EmbeddingType: e.EmbeddingType,
			ChunkLength:   len(e.Text),
		}
		if e.Location != nil && e.Location.Text != nil {
			meta.Page = e.Location.Text.Page
			meta.Paragraph = e.Location.Text.Paragraph
		}

		sourceDoc := documents[e.DocumentID]
		if sourceDoc == nil {
			sourceDoc = &models.SourceDocumentRef{DocumentID: e.DocumentID}
		}

		hits = append(hits, models.SearchHit{
			Rank:           rank,
			Score:          e.Score,
			ChunkText:      e.Text,
			SourceDocument: sourceDoc,
			ChunkMetadata:  meta,
		})
		rank++
	}

	return hits
}

func looksLikeUUID(value string) bool {
	if len(value) < 32 || strings.ContainsAny(value, "{}") {
		return false
	}
	return uuidRe.MatchString(value)
}

func (s *Service) emptyResponse(query string, vectorDim int, start time.Time) *models.SemanticSearchResponse {
	return &models.SemanticSearchResponse{
		Query:           query,
		Model:           s.embedder.ModelName(),
		VectorDimension: vectorDim,
		ResultCount:     0,
		TotalCount:      0,
		SearchTimeMs:    time.Since(start).Milliseconds(),
		Results:         []models.SearchHit{},
	}
}
