package memory

import (
	"time"

	"github.com/emotibot/emotibot/pkg/chunker"
	"github.com/emotibot/emotibot/pkg/llms"
	"github.com/emotibot/emotibot/pkg/metrics"
	"github.com/emotibot/emotibot/pkg/models"
)

const (
	DefaultSearchResults    = 5
	DefaultMaxContextLength = 2000
	DefaultStatsSampleSize  = 100
	DefaultAssistantName    = "EmotiBot"
)

type Option func(*Manager)

// WithLLM sets the text generator. Without one GenerateResponse returns the fallback text.
func WithLLM(llm models.LLM) Option {
	return func(m *Manager) {
		m.llm = llm
	}
}

func WithChunkSize(size int) Option {
	return func(m *Manager) {
		if size > 0 {
			m.chunkSize = size
		}
	}
}

func WithOverlap(overlap int) Option {
	return func(m *Manager) {
		if overlap >= 0 {
			m.overlap = overlap
		}
	}
}

// WithSearchResults sets how many records GetRelevantContext retrieves.
func WithSearchResults(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.searchResults = n
		}
	}
}

func WithMaxContextLength(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxContextLength = n
		}
	}
}

func WithStatsSampleSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.statsSampleSize = n
		}
	}
}

// WithAssistantName sets the speaker label used in stored conversations and prompts.
func WithAssistantName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.assistantName = name
		}
	}
}

// WithGenerationTimeout bounds the llm call of GenerateResponse. Retrieval and storing
// the exchange are not subject to it. Zero disables the bound.
func WithGenerationTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.generationTimeout = d
		}
	}
}

func WithTokenCounter(tc *llms.TokenCounter) Option {
	return func(m *Manager) {
		m.tokens = tc
	}
}

func WithMetrics(mm *metrics.Manager) Option {
	return func(m *Manager) {
		m.metrics = mm
	}
}

// WithClock overrides the source of record timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func defaultManager() *Manager {
	return &Manager{
		chunkSize:        chunker.DefaultChunkSize,
		overlap:          chunker.DefaultOverlap,
		searchResults:    DefaultSearchResults,
		maxContextLength: DefaultMaxContextLength,
		statsSampleSize:  DefaultStatsSampleSize,
		assistantName:    DefaultAssistantName,
		metrics:          metrics.NoOpManager(),
		now:              func() time.Time { return time.Now().UTC() },
	}
}
