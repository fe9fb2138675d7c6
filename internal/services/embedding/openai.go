package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ternarybob/lacuna/internal/common"
)

// openaiEmbedder calls an OpenAI-compatible embeddings endpoint. Local
// inference servers that speak the same protocol work by setting base_url.
type openaiEmbedder struct {
	client openai.Client
	model  string
}

func newOpenAIEmbedder(cfg common.EmbeddingConfig) *openaiEmbedder {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openaiEmbedder{
		client: openai.NewClient(opts...),
		model:  cfg.ModelName,
	}
}

func (e *openaiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	return resp.Data[0].Embedding, nil
}
