package llms

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/models"
)

const AnthropicAPIKeyNotSetError = "EMOTIBOT_ANTHROPIC_API_KEY is not set" //nolint:gosec

var _ models.LLM = &AnthropicLLM{}

type AnthropicLLM struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicLLM(cfg *config.Config) (*AnthropicLLM, error) {
	if cfg.LLM.AnthropicAPIKey == "" {
		return nil, models.NewInitializationError("anthropic llm", errors.New(AnthropicAPIKeyNotSetError))
	}

	maxTokens := cfg.LLM.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	httpClient := NewRetryableHTTPClient(MaxAPIRequestAttempts, DefaultGenerationTimeout).StandardClient()
	client := anthropic.NewClient(
		anthropicopt.WithAPIKey(cfg.LLM.AnthropicAPIKey),
		anthropicopt.WithHTTPClient(httpClient),
		// retries are handled by the retryable http client
		anthropicopt.WithMaxRetries(0),
	)

	return &AnthropicLLM{
		client:    &client,
		model:     modelOrDefault(cfg.LLM.Model, ServiceAnthropic, DefaultLLMModels),
		maxTokens: int64(maxTokens),
	}, nil
}

func (l *AnthropicLLM) Call(ctx context.Context, prompt string) (string, error) {
	if l.client == nil {
		return "", models.NewGenerationError(InvalidLLMModelError, nil)
	}

	rsp, err := l.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(l.model),
		MaxTokens: l.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", models.NewGenerationError("anthropic message failed", err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	if b.Len() == 0 {
		return "", models.NewGenerationError("no response from Anthropic", nil)
	}

	return b.String(), nil
}
