package embedding

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

const (
	// safetyCap bounds pathological inputs that slipped past chunking.
	safetyCap = 3000

	// minChars is the size below which splitting stops and trimming starts.
	minChars = 200

	// queryInstructionPrefix aligns query vectors with passage vectors on
	// instruction-trained models (mxbai, E5, GTE families). Documents are
	// embedded without it.
	queryInstructionPrefix = "Represent this sentence for searching relevant passages: "
)

var (
	tooLargeRe     = regexp.MustCompile(`input \(\d+ tokens\) is too large`)
	horizontalWsRe = regexp.MustCompile("[ \t\v\f\r]+")
	newlineRunsRe  = regexp.MustCompile(`\n{3,}`)
)

// Embedder is the raw model call. Split out so the fallback logic is
// testable without a live endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Service generates embeddings with fallback handling for inputs the model
// rejects as too large: split at a semantic boundary, embed both halves,
// and average the vectors.
type Service struct {
	embedder    Embedder
	modelName   string
	queryPrefix string
	limiter     *rate.Limiter
	logger      arbor.ILogger

	dimMu     sync.Mutex
	dimension int
}

// NewService creates the embedding service from configuration.
func NewService(cfg common.EmbeddingConfig) *Service {
	return newService(newOpenAIEmbedder(cfg), cfg)
}

func newService(embedder Embedder, cfg common.EmbeddingConfig) *Service {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	s := &Service{
		embedder:  embedder,
		modelName: cfg.ModelName,
		limiter:   limiter,
		logger:    common.GetLogger(),
	}
	if cfg.UseQueryPrefix {
		s.queryPrefix = queryInstructionPrefix
	}
	return s
}

// EmbedText embeds passage text without any instruction prefix.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float64, error) {
	return s.embedWithFallback(ctx, sanitize(text))
}

// EmbedQuery embeds a search query, prefixed when the model wants
// asymmetric retrieval prompts.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return s.embedWithFallback(ctx, s.queryPrefix+sanitize(query))
}

// EmbedChunks embeds each chunk, optionally conditioning the vector on a
// document context string. The stored chunk text is never modified.
func (s *Service) EmbedChunks(ctx context.Context, chunks []models.Chunk, docContext string) ([]models.Embedding, error) {
	embeddings := make([]models.Embedding, 0, len(chunks))

	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}

		textToEmbed := chunk.Text
		if strings.TrimSpace(docContext) != "" {
			textToEmbed = docContext + "\n\n" + chunk.Text
		}

		vector, err := s.EmbedText(ctx, textToEmbed)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
		}
		if len(vector) == 0 {
			continue
		}

		paragraph := chunk.Index
		embeddings = append(embeddings, models.Embedding{
			Type:    s.modelName,
			Text:    chunk.Text,
			Vector:  vector,
			ChunkID: chunk.ID,
			Location: &models.EmbeddingLocation{
				Text: &models.TextLocation{Paragraph: &paragraph},
			},
		})
	}

	return embeddings, nil
}

// ModelName returns the configured embedding model.
func (s *Service) ModelName() string {
	return s.modelName
}

// Dimension returns the vector dimension observed on the first successful
// call, or zero before that.
func (s *Service) Dimension() int {
	s.dimMu.Lock()
	defer s.dimMu.Unlock()
	return s.dimension
}

// call runs one rate-limited model invocation and records the dimension.
func (s *Service) call(ctx context.Context, text string) ([]float64, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.dimMu.Lock()
	if s.dimension == 0 && len(vector) > 0 {
		s.dimension = len(vector)
	}
	s.dimMu.Unlock()

	return vector, nil
}

// embedWithFallback embeds the text, recovering from model-side size
// rejections by splitting and averaging.
func (s *Service) embedWithFallback(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	if len(text) > safetyCap {
		s.logger.Warn().
			Int("length", len(text)).
			Int("cap", safetyCap).
			Msg("Embedding input exceeds safety cap, truncating")
		text = text[:safetyCap]
	}

	vector, err := s.call(ctx, text)
	if err == nil {
		return vector, nil
	}
	if !looksLikeTooLarge(err) {
		return nil, err
	}

	// Small inputs cannot be split meaningfully, trim instead.
	if len(text) <= minChars {
		trimmed := trimWorstParts(text)
		if len(trimmed) == len(text) {
			newLen := len(text) / 2
			if newLen < 1 {
				newLen = 1
			}
			s.logger.Warn().Int("length", len(text)).Int("truncated_to", newLen).
				Msg("Embedding input still too large, last resort truncation")
			trimmed = text[:newLen]
		} else {
			s.logger.Warn().Int("length", len(text)).Int("trimmed_to", len(trimmed)).
				Msg("Embedding input too large, dropped oversized tokens")
		}
		return s.call(ctx, trimmed)
	}

	mid := findSplitPoint(text)
	left, right := text[:mid], text[mid:]

	s.logger.Info().
		Int("length", len(text)).
		Int("left", len(left)).
		Int("right", len(right)).
		Msg("Embedding input too large, splitting and averaging vectors")

	leftVec, err := s.embedWithFallback(ctx, left)
	if err != nil {
		return nil, err
	}
	rightVec, err := s.embedWithFallback(ctx, right)
	if err != nil {
		return nil, err
	}

	if len(leftVec) == 0 {
		return rightVec, nil
	}
	if len(rightVec) == 0 {
		return leftVec, nil
	}
	if len(leftVec) != len(rightVec) {
		return nil, fmt.Errorf("embedding dimension mismatch after split: left=%d right=%d",
			len(leftVec), len(rightVec))
	}

	avg := make([]float64, len(leftVec))
	for i := range leftVec {
		avg[i] = (leftVec[i] + rightVec[i]) / 2
	}
	return avg, nil
}

func looksLikeTooLarge(err error) bool {
	msg := err.Error()
	return tooLargeRe.MatchString(msg) || strings.Contains(msg, "physical batch size")
}

// findSplitPoint picks a boundary near the midpoint, preferring newlines,
// then sentence ends, then spaces.
func findSplitPoint(text string) int {
	const window = 120
	mid := len(text) / 2

	if i := lastIndexBefore(text, '\n', mid, window); i > 0 {
		return i
	}
	if i := lastIndexBefore(text, '.', mid, window); i > 0 {
		return i + 1
	}
	if i := lastIndexBefore(text, ' ', mid, window); i > 0 {
		return i
	}
	return mid
}

func lastIndexBefore(text string, ch byte, from, window int) int {
	start := from - window
	if start < 0 {
		start = 0
	}
	for i := from; i >= start; i-- {
		if text[i] == ch {
			return i
		}
	}
	return -1
}

// sanitize strips null bytes and collapses pathological whitespace while
// keeping paragraph breaks.
func sanitize(text string) string {
	s := strings.ReplaceAll(text, "\x00", "")
	s = horizontalWsRe.ReplaceAllString(s, " ")
	s = newlineRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// trimWorstParts drops very long "words", which are usually extraction
// garbage rather than content.
func trimWorstParts(text string) string {
	parts := strings.Split(text, " ")
	var b strings.Builder
	b.Grow(len(text))
	for _, p := range parts {
		if len(p) > 80 {
			continue
		}
		b.WriteString(p)
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}
