package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string                 `toml:"environment"` // "development" or "production"
	Server      ServerConfig           `toml:"server"`
	Logging     LoggingConfig          `toml:"logging"`
	Source      SourceConfig           `toml:"source"`
	Lake        LakeConfig             `toml:"lake"`
	Transform   TransformServiceConfig `toml:"transform_service"`
	Embedding   EmbeddingConfig        `toml:"embedding"`
	Chat        ChatConfig             `toml:"chat"`
	Gemini      GeminiConfig           `toml:"gemini"`
	Claude      ClaudeConfig           `toml:"claude"`
	Ingestion   IngestionConfig        `toml:"ingestion"`
	Schedule    ScheduleConfig         `toml:"schedule"`
	RAG         RAGConfig              `toml:"rag"`
	Search      SearchConfig           `toml:"search"`
	WebSocket   WebSocketConfig        `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=1,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// SourceConfig holds connection settings for the source content repository.
type SourceConfig struct {
	URL      string `toml:"url" validate:"required,url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// LakeConfig holds connection and layout settings for the content lake.
type LakeConfig struct {
	URL                   string    `toml:"url" validate:"required,url"`
	RepositoryID          string    `toml:"repository_id" validate:"required"`
	TargetPath            string    `toml:"target_path"`
	ModelBootstrapEnabled bool      `toml:"model_bootstrap_enabled"`
	ModelFragmentsFile    string    `toml:"model_fragments_file"`
	IDP                   IDPConfig `toml:"idp"`
}

// IDPConfig holds the OAuth2 resource-owner-password settings for the lake IdP.
type IDPConfig struct {
	TokenURL     string `toml:"token_url" validate:"required,url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
}

// TransformServiceConfig holds settings for the external text-extraction service.
type TransformServiceConfig struct {
	URL       string `toml:"url"`
	TimeoutMs int    `toml:"timeout_ms"`
	Enabled   bool   `toml:"enabled"`
}

// EmbeddingConfig holds embedding model and chunking settings.
type EmbeddingConfig struct {
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key"`
	ModelName         string  `toml:"model_name"`
	ChunkSize         int     `toml:"chunk_size" validate:"gt=0"`
	ChunkOverlap      int     `toml:"chunk_overlap" validate:"gte=0"`
	MinChunkSize      int     `toml:"min_chunk_size" validate:"gt=0"`
	MaxChunkSize      int     `toml:"max_chunk_size" validate:"gt=0"`
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 disables rate limiting
	UseQueryPrefix    bool    `toml:"use_query_prefix"`    // asymmetric retrieval prefix on query embeddings
}

// ChatProvider represents the chat model provider type
type ChatProvider string

const (
	// ChatProviderOpenAI uses an OpenAI-compatible endpoint
	ChatProviderOpenAI ChatProvider = "openai"
	// ChatProviderGemini uses Google Gemini API
	ChatProviderGemini ChatProvider = "gemini"
	// ChatProviderClaude uses Anthropic Claude API
	ChatProviderClaude ChatProvider = "claude"
)

// ChatConfig holds answer-generation model settings.
type ChatConfig struct {
	Provider    ChatProvider `toml:"provider"`
	BaseURL     string       `toml:"base_url"`
	APIKey      string       `toml:"api_key"`
	Model       string       `toml:"model"`
	Temperature float64      `toml:"temperature"`
	MaxTokens   int          `toml:"max_tokens"`
	Timeout     string       `toml:"timeout"` // duration string, e.g. "5m"
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// SourceFolderConfig declares one discovery root.
type SourceFolderConfig struct {
	Folder    string   `toml:"folder" validate:"required"`
	Recursive bool     `toml:"recursive"`
	Types     []string `toml:"types"`
	MimeTypes []string `toml:"mime_types"`
}

// ExcludeConfig declares process-wide discovery exclusions.
type ExcludeConfig struct {
	Paths   []string `toml:"paths"` // glob patterns, * wildcard
	Aspects []string `toml:"aspects"`
}

// IngestionConfig sizes the ingestion pipeline and declares its sources.
type IngestionConfig struct {
	WorkerThreads         int                  `toml:"worker_threads" validate:"gt=0"`
	QueueCapacity         int                  `toml:"queue_capacity" validate:"gt=0"`
	ExecutorQueueCapacity int                  `toml:"executor_queue_capacity" validate:"gt=0"`
	Sources               []SourceFolderConfig `toml:"sources"`
	Exclude               ExcludeConfig        `toml:"exclude"`
}

// ScheduleConfig enables cron-driven sync of the configured sources.
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

// RAGConfig holds retrieval-augmented generation defaults.
type RAGConfig struct {
	DefaultTopK         int     `toml:"default_top_k" validate:"gt=0"`
	DefaultMinScore     float64 `toml:"default_min_score"`
	MaxContextLength    int     `toml:"max_context_length" validate:"gt=0"`
	DefaultSystemPrompt string  `toml:"default_system_prompt"`
}

// SearchConfig holds semantic search defaults.
type SearchConfig struct {
	DefaultMinScore float64 `toml:"default_min_score"`
}

// WebSocketConfig contains configuration for the job event stream.
type WebSocketConfig struct {
	BroadcastInterval string `toml:"broadcast_interval"` // e.g. "2s"
}

// DefaultSystemPrompt is used when neither config nor the request override it.
const DefaultSystemPrompt = "You are a helpful assistant that answers questions based strictly on the " +
	"provided document context. Cite sources by their label when possible. If the context does not " +
	"contain enough information to answer, say so clearly. Be concise."

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in lacuna.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Source: SourceConfig{
			URL: "http://localhost:8081",
		},
		Lake: LakeConfig{
			URL:          "http://localhost:8082",
			RepositoryID: "default",
			TargetPath:   "/",
			IDP: IDPConfig{
				TokenURL: "http://localhost:8083/token",
			},
		},
		Transform: TransformServiceConfig{
			URL:       "http://localhost:8090",
			TimeoutMs: 90000,
			Enabled:   true,
		},
		Embedding: EmbeddingConfig{
			BaseURL:        "http://localhost:1234/v1",
			ModelName:      "default",
			ChunkSize:      900,
			ChunkOverlap:   120,
			MinChunkSize:   200,
			MaxChunkSize:   1000,
			UseQueryPrefix: true,
		},
		Chat: ChatConfig{
			Provider:    ChatProviderOpenAI,
			BaseURL:     "http://localhost:1234/v1",
			Model:       "default",
			Temperature: 0.2,
			MaxTokens:   2048,
			Timeout:     "5m",
		},
		Gemini: GeminiConfig{
			Model: "gemini-3-flash-preview",
		},
		Claude: ClaudeConfig{
			Model:     "claude-haiku-3-5-20241022",
			MaxTokens: 8192,
		},
		Ingestion: IngestionConfig{
			WorkerThreads:         4,
			QueueCapacity:         1000,
			ExecutorQueueCapacity: 1000,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 */6 * * *", // every 6 hours
		},
		RAG: RAGConfig{
			DefaultTopK:      5,
			DefaultMinScore:  0.5,
			MaxContextLength: 12000,
		},
		Search: SearchConfig{
			DefaultMinScore: 0.5,
		},
		WebSocket: WebSocketConfig{
			BroadcastInterval: "2s",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI flags.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("LACUNA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("LACUNA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("LACUNA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("LACUNA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("LACUNA_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if url := os.Getenv("LACUNA_SOURCE_URL"); url != "" {
		config.Source.URL = url
	}
	if username := os.Getenv("LACUNA_SOURCE_USERNAME"); username != "" {
		config.Source.Username = username
	}
	if password := os.Getenv("LACUNA_SOURCE_PASSWORD"); password != "" {
		config.Source.Password = password
	}

	if url := os.Getenv("LACUNA_LAKE_URL"); url != "" {
		config.Lake.URL = url
	}
	if repo := os.Getenv("LACUNA_LAKE_REPOSITORY_ID"); repo != "" {
		config.Lake.RepositoryID = repo
	}
	if tokenURL := os.Getenv("LACUNA_LAKE_IDP_TOKEN_URL"); tokenURL != "" {
		config.Lake.IDP.TokenURL = tokenURL
	}
	if clientID := os.Getenv("LACUNA_LAKE_IDP_CLIENT_ID"); clientID != "" {
		config.Lake.IDP.ClientID = clientID
	}
	if clientSecret := os.Getenv("LACUNA_LAKE_IDP_CLIENT_SECRET"); clientSecret != "" {
		config.Lake.IDP.ClientSecret = clientSecret
	}
	if username := os.Getenv("LACUNA_LAKE_IDP_USERNAME"); username != "" {
		config.Lake.IDP.Username = username
	}
	if password := os.Getenv("LACUNA_LAKE_IDP_PASSWORD"); password != "" {
		config.Lake.IDP.Password = password
	}

	if url := os.Getenv("LACUNA_TRANSFORM_URL"); url != "" {
		config.Transform.URL = url
	}
	if enabled := os.Getenv("LACUNA_TRANSFORM_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Transform.Enabled = e
		}
	}

	if baseURL := os.Getenv("LACUNA_EMBEDDING_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}
	if apiKey := os.Getenv("LACUNA_EMBEDDING_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey
	}
	if model := os.Getenv("LACUNA_EMBEDDING_MODEL"); model != "" {
		config.Embedding.ModelName = model
	}

	if provider := os.Getenv("LACUNA_CHAT_PROVIDER"); provider != "" {
		config.Chat.Provider = ChatProvider(provider)
	}
	if baseURL := os.Getenv("LACUNA_CHAT_BASE_URL"); baseURL != "" {
		config.Chat.BaseURL = baseURL
	}
	if apiKey := os.Getenv("LACUNA_CHAT_API_KEY"); apiKey != "" {
		config.Chat.APIKey = apiKey
	}
	if model := os.Getenv("LACUNA_CHAT_MODEL"); model != "" {
		config.Chat.Model = model
	}

	if apiKey := os.Getenv("LACUNA_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("LACUNA_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // LACUNA_ prefix takes priority
	}

	if threads := os.Getenv("LACUNA_INGESTION_WORKER_THREADS"); threads != "" {
		if t, err := strconv.Atoi(threads); err == nil {
			config.Ingestion.WorkerThreads = t
		}
	}
	if capacity := os.Getenv("LACUNA_INGESTION_QUEUE_CAPACITY"); capacity != "" {
		if c, err := strconv.Atoi(capacity); err == nil {
			config.Ingestion.QueueCapacity = c
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks structural constraints that cannot be expressed as defaults.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Embedding.ChunkOverlap >= c.Embedding.ChunkSize {
		return fmt.Errorf("embedding.chunk_overlap (%d) must be smaller than embedding.chunk_size (%d)",
			c.Embedding.ChunkOverlap, c.Embedding.ChunkSize)
	}
	if c.Embedding.MinChunkSize > c.Embedding.MaxChunkSize {
		return fmt.Errorf("embedding.min_chunk_size (%d) must not exceed embedding.max_chunk_size (%d)",
			c.Embedding.MinChunkSize, c.Embedding.MaxChunkSize)
	}

	switch c.Chat.Provider {
	case ChatProviderOpenAI, ChatProviderGemini, ChatProviderClaude:
	default:
		return fmt.Errorf("chat.provider must be one of openai, gemini, claude (got %q)", c.Chat.Provider)
	}

	if c.Lake.ModelBootstrapEnabled && c.Lake.ModelFragmentsFile == "" {
		return fmt.Errorf("lake.model_fragments_file is required when lake.model_bootstrap_enabled is true")
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
