package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
)

// OpenAIChatService generates completions against an OpenAI-compatible
// endpoint. Setting base_url points it at local inference servers that
// speak the same protocol.
type OpenAIChatService struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      arbor.ILogger
}

// NewOpenAIChatService creates the service from chat configuration.
func NewOpenAIChatService(cfg common.ChatConfig) (*OpenAIChatService, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("chat model is required")
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := 5 * time.Minute
	if cfg.Timeout != "" {
		parsed, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid chat timeout %q: %w", cfg.Timeout, err)
		}
		timeout = parsed
	}

	return &OpenAIChatService{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		logger:      common.GetLogger(),
	}, nil
}

// Chat generates a single completion from the prompts.
func (s *OpenAIChatService) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(s.model),
		Messages: messages,
	}
	if s.temperature > 0 {
		params.Temperature = openai.Float(s.temperature)
	}
	if s.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(s.maxTokens))
	}

	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

// ModelName returns the configured chat model.
func (s *OpenAIChatService) ModelName() string {
	return s.model
}
