package interfaces

import "context"

// ChatService generates a single-turn completion from a system prompt and a
// user prompt. Implementations exist per provider and are selected by
// configuration.
type ChatService interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ModelName() string
}
