package llms

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/models"
)

const OpenAIAPIKeyNotSetError = "EMOTIBOT_OPENAI_API_KEY is not set" //nolint:gosec

var _ models.LLM = &OpenAILLM{}

type OpenAILLM struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAILLM(cfg *config.Config) (*OpenAILLM, error) {
	if cfg.LLM.OpenAIAPIKey == "" {
		return nil, models.NewInitializationError("openai llm", errors.New(OpenAIAPIKeyNotSetError))
	}

	maxTokens := cfg.LLM.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &OpenAILLM{
		client:    newOpenAIClient(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIEndpoint),
		model:     modelOrDefault(cfg.LLM.Model, ServiceOpenAI, DefaultLLMModels),
		maxTokens: maxTokens,
	}, nil
}

func newOpenAIClient(apiKey, endpoint string) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		clientConfig.BaseURL = endpoint
	}
	clientConfig.HTTPClient = NewRetryableHTTPClient(
		MaxAPIRequestAttempts,
		DefaultGenerationTimeout,
	).StandardClient()

	return openai.NewClientWithConfig(clientConfig)
}

func (l *OpenAILLM) Call(ctx context.Context, prompt string) (string, error) {
	if l.client == nil {
		return "", models.NewGenerationError(InvalidLLMModelError, nil)
	}

	rsp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     l.model,
		MaxTokens: l.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", models.NewGenerationError("openai chat completion failed", err)
	}

	if len(rsp.Choices) == 0 || rsp.Choices[0].Message.Content == "" {
		return "", models.NewGenerationError("no response from OpenAI", nil)
	}

	return rsp.Choices[0].Message.Content, nil
}
