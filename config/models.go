package config

import "time"

// Config holds the configuration of the application
// Use config.LoadConfig to create a new instance
type Config struct {
	LLM        LLM              `mapstructure:"llm"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Store      StoreConfig      `mapstructure:"store"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type LLM struct {
	// Service is one of openai, anthropic or google. Empty disables generation.
	Service string `mapstructure:"service" validate:"omitempty,oneof=openai anthropic google"`
	Model   string `mapstructure:"model"`
	// API keys are loaded from ENV not config file.
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	GoogleAPIKey    string `mapstructure:"google_api_key"`
	OpenAIEndpoint  string `mapstructure:"openai_endpoint"`
	MaxTokens       int    `mapstructure:"max_tokens"`
}

type EmbeddingsConfig struct {
	Service        string `mapstructure:"service" validate:"required,oneof=openai google local"`
	Model          string `mapstructure:"model"`
	Dimensions     int    `mapstructure:"dimensions" validate:"gt=0"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	OpenAIEndpoint string `mapstructure:"openai_endpoint"`
	GoogleAPIKey   string `mapstructure:"google_api_key"`
	LocalServerURL string `mapstructure:"local_server_url"`
}

type StoreConfig struct {
	Type       string         `mapstructure:"type" validate:"required,oneof=memory badger postgres"`
	Collection string         `mapstructure:"collection" validate:"required"`
	Badger     BadgerConfig   `mapstructure:"badger"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
}

type BadgerConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MemoryConfig struct {
	ChunkSize        int    `mapstructure:"chunk_size" validate:"gt=0"`
	ChunkOverlap     int    `mapstructure:"chunk_overlap" validate:"gte=0"`
	SearchResults    int    `mapstructure:"search_results" validate:"gt=0"`
	MaxContextLength int    `mapstructure:"max_context_length" validate:"gt=0"`
	StatsSampleSize  int    `mapstructure:"stats_sample_size" validate:"gt=0"`
	AssistantName    string `mapstructure:"assistant_name"`
}

type AssistantConfig struct {
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=0"`
	SessionMaxTurns   int           `mapstructure:"session_max_turns" validate:"gte=0"`
	MaxSessions       int           `mapstructure:"max_sessions"      validate:"gte=0"`
	SessionIdleTTL    time.Duration `mapstructure:"session_idle_ttl"`
}

type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"             validate:"gt=0"`
	MaxRequestSize int64  `mapstructure:"max_request_size" validate:"gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	Secret   string `mapstructure:"secret"`
	Required bool   `mapstructure:"required"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
