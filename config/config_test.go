package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
llm:
  service: openai
  model: gpt-4o-mini
embeddings:
  service: openai
  model: text-embedding-3-small
  dimensions: 1536
store:
  type: memory
  collection: test_memory
memory:
  chunk_size: 500
  chunk_overlap: 50
assistant:
  generation_timeout: 30s
log:
  level: debug
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Service)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 1536, cfg.Embeddings.Dimensions)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "test_memory", cfg.Store.Collection)
	assert.Equal(t, 500, cfg.Memory.ChunkSize)
	assert.Equal(t, 50, cfg.Memory.ChunkOverlap)
	assert.Equal(t, 30*time.Second, cfg.Assistant.GenerationTimeout)

	// defaults
	assert.Equal(t, 100, cfg.Memory.StatsSampleSize)
	assert.Equal(t, 2000, cfg.Memory.MaxContextLength)
	assert.Equal(t, "EmotiBot", cfg.Memory.AssistantName)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Assistant.MaxSessions)
	assert.Equal(t, time.Hour, cfg.Assistant.SessionIdleTTL)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("EMOTIBOT_OPENAI_API_KEY", "sk-test")
	t.Setenv("EMOTIBOT_STORE_COLLECTION", "from_env")

	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.OpenAIAPIKey)
	assert.Equal(t, "sk-test", cfg.Embeddings.OpenAIAPIKey)
	assert.Equal(t, "from_env", cfg.Store.Collection)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{
			name:     "unknown store type",
			contents: "store:\n  type: chroma\n",
		},
		{
			name:     "postgres without dsn",
			contents: "store:\n  type: postgres\n",
		},
		{
			name:     "unknown llm service",
			contents: "llm:\n  service: cohere\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.contents))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
