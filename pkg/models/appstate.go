package models

import (
	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/metrics"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	Config     *config.Config
	Store      VectorStore
	Embeddings EmbeddingsClient
	LLM        LLM
	Memory     MemoryManager
	Scorer     EmotionScorer
	Assistant  Responder
	Sessions   *SessionRegistry
	Metrics    *metrics.Manager
}
