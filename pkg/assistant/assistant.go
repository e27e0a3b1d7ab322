// Package assistant runs one conversation turn: it scores the user's emotions, asks
// the memory for a reply and records the turn on the caller's session.
package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/emotibot/emotibot/internal"
	"github.com/emotibot/emotibot/pkg/llms"
	"github.com/emotibot/emotibot/pkg/memory"
	"github.com/emotibot/emotibot/pkg/metrics"
	"github.com/emotibot/emotibot/pkg/models"
)

var log = internal.GetLogger()

var _ models.Responder = &Assistant{}

// Assistant collaborators are all optional. Without memory the LLM is prompted
// directly, and without either the fallback text is returned.
type Assistant struct {
	scorer            models.EmotionScorer
	memory            models.MemoryManager
	llm               models.LLM
	assistantName     string
	generationTimeout time.Duration
	metrics           *metrics.Manager
}

type Option func(*Assistant)

func WithScorer(scorer models.EmotionScorer) Option {
	return func(a *Assistant) {
		a.scorer = scorer
	}
}

func WithMemory(mm models.MemoryManager) Option {
	return func(a *Assistant) {
		a.memory = mm
	}
}

func WithLLM(llm models.LLM) Option {
	return func(a *Assistant) {
		a.llm = llm
	}
}

func WithAssistantName(name string) Option {
	return func(a *Assistant) {
		if name != "" {
			a.assistantName = name
		}
	}
}

// WithGenerationTimeout bounds the llm call when the assistant prompts the llm directly.
// With memory configured the manager's own generation timeout applies. Zero disables the bound.
func WithGenerationTimeout(d time.Duration) Option {
	return func(a *Assistant) {
		if d >= 0 {
			a.generationTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(a *Assistant) {
		if m != nil {
			a.metrics = m
		}
	}
}

func NewAssistant(opts ...Option) *Assistant {
	a := &Assistant{
		assistantName:     memory.DefaultAssistantName,
		generationTimeout: llms.DefaultGenerationTimeout,
		metrics:           metrics.NoOpManager(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Respond produces the reply to message and appends the turn to session. A nil session
// is replaced by a fresh one whose id is returned in the Reply. Respond always returns text.
func (a *Assistant) Respond(
	ctx context.Context,
	session *models.ConversationSession,
	message string,
) models.Reply {
	if session == nil {
		session = models.NewConversationSession("", 0)
	}

	var emotions *models.EmotionProfile
	if a.scorer != nil {
		profile := a.scorer.Score(message)
		emotions = &profile
		a.metrics.RecordDominantEmotion(profile.DominantEmotion)
		log.Debugf(
			"session %s: dominant emotion %s (%.2f)",
			session.ID,
			profile.DominantEmotion,
			profile.Confidence,
		)
	}

	text := a.generate(ctx, message, emotions)

	session.AppendTurn(models.Turn{
		UserMessage: message,
		BotResponse: text,
		Emotions:    emotions,
	})

	return models.Reply{
		SessionID: session.ID,
		Text:      text,
		Emotions:  emotions,
	}
}

func (a *Assistant) generate(ctx context.Context, message string, emotions *models.EmotionProfile) string {
	if a.memory != nil {
		return a.memory.GenerateResponse(ctx, message, emotions)
	}
	if a.llm == nil {
		log.Warn("assistant has neither memory nor llm, returning fallback response")
		return memory.FallbackResponse
	}

	start := time.Now()
	prompt, err := memory.RenderPrompt(a.assistantName, message, "", emotions)
	if err != nil {
		log.Errorf("failed to build prompt: %v", err)
		a.metrics.RecordGeneration("fallback", time.Since(start))
		return memory.FallbackResponse
	}

	genCtx, cancel := ctx, context.CancelFunc(func() {})
	if a.generationTimeout > 0 {
		genCtx, cancel = context.WithTimeout(ctx, a.generationTimeout)
	}
	defer cancel()

	response, err := a.llm.Call(genCtx, prompt)
	if err != nil || strings.TrimSpace(response) == "" {
		log.Errorf("failed to generate response: %v", err)
		a.metrics.RecordGeneration("fallback", time.Since(start))
		return memory.FallbackResponse
	}
	a.metrics.RecordGeneration("success", time.Since(start))
	return strings.TrimSpace(response)
}
