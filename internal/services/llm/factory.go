package llm

import (
	"fmt"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
)

// NewChatService creates the chat service implementation selected by
// configuration.
func NewChatService(cfg *common.Config) (interfaces.ChatService, error) {
	switch cfg.Chat.Provider {
	case common.ChatProviderOpenAI:
		return NewOpenAIChatService(cfg.Chat)
	case common.ChatProviderGemini:
		return NewGeminiChatService(cfg.Gemini)
	case common.ChatProviderClaude:
		return NewClaudeChatService(cfg.Claude)
	default:
		return nil, fmt.Errorf("unsupported chat provider %q", cfg.Chat.Provider)
	}
}
