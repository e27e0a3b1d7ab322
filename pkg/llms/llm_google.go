package llms

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/models"
)

const GoogleAPIKeyNotSetError = "EMOTIBOT_GOOGLE_API_KEY is not set" //nolint:gosec

var _ models.LLM = &GoogleLLM{}

type GoogleLLM struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func NewGoogleLLM(ctx context.Context, cfg *config.Config) (*GoogleLLM, error) {
	if cfg.LLM.GoogleAPIKey == "" {
		return nil, models.NewInitializationError("google llm", errors.New(GoogleAPIKeyNotSetError))
	}

	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(cfg.LLM.GoogleAPIKey))
	if err != nil {
		return nil, models.NewInitializationError("google llm", err)
	}

	maxTokens := cfg.LLM.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &GoogleLLM{
		client:    client,
		model:     modelOrDefault(cfg.LLM.Model, ServiceGoogle, DefaultLLMModels),
		maxTokens: int32(maxTokens),
	}, nil
}

func (l *GoogleLLM) Call(ctx context.Context, prompt string) (string, error) {
	if l.client == nil {
		return "", models.NewGenerationError(InvalidLLMModelError, nil)
	}

	model := l.client.GenerativeModel(l.model)
	model.SetMaxOutputTokens(l.maxTokens)

	rsp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", models.NewGenerationError("google generate content failed", err)
	}

	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return "", models.NewGenerationError("no response from Google", nil)
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	if b.Len() == 0 {
		return "", models.NewGenerationError("no response from Google", nil)
	}

	return b.String(), nil
}

func (l *GoogleLLM) Close() error {
	return l.client.Close()
}
