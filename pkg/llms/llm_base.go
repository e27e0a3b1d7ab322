package llms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/internal"
	"github.com/emotibot/emotibot/pkg/models"
)

const (
	DefaultMaxTokens             = 1024
	DefaultGenerationTimeout     = 90 * time.Second
	MaxAPIRequestAttempts        = 5
	InvalidLLMModelError         = "llm model is not set or is invalid"
	InvalidEmbeddingsClientError = "embeddings client is not set or is invalid"
)

const (
	ServiceOpenAI    = "openai"
	ServiceAnthropic = "anthropic"
	ServiceGoogle    = "google"
	ServiceLocal     = "local"
)

var DefaultLLMModels = map[string]string{
	ServiceOpenAI:    "gpt-4o-mini",
	ServiceAnthropic: "claude-3-5-haiku-latest",
	ServiceGoogle:    "gemini-1.5-flash",
}

var DefaultEmbeddingModels = map[string]string{
	ServiceOpenAI: "text-embedding-3-small",
	ServiceGoogle: "text-embedding-004",
	ServiceLocal:  "all-MiniLM-L6-v2",
}

var log = internal.GetLogger()

// NewLLMClient returns the text generation client for the configured service.
// An empty service disables generation and returns a nil LLM.
func NewLLMClient(ctx context.Context, cfg *config.Config) (models.LLM, error) {
	switch cfg.LLM.Service {
	case ServiceOpenAI:
		return NewOpenAILLM(cfg)
	case ServiceAnthropic:
		return NewAnthropicLLM(cfg)
	case ServiceGoogle:
		return NewGoogleLLM(ctx, cfg)
	case "":
		log.Warn("llm.service is not set, responses will use the fallback reply")
		return nil, nil
	default:
		return nil, models.NewInitializationError(
			"llm",
			fmt.Errorf("invalid LLM service: %s", cfg.LLM.Service),
		)
	}
}

// NewEmbeddingsClient returns the embeddings client for the configured service.
func NewEmbeddingsClient(ctx context.Context, cfg *config.Config) (models.EmbeddingsClient, error) {
	if cfg.Embeddings.Dimensions <= 0 {
		return nil, models.NewInitializationError(
			"embeddings",
			fmt.Errorf("embeddings.dimensions must be positive"),
		)
	}
	switch cfg.Embeddings.Service {
	case ServiceOpenAI:
		return NewOpenAIEmbeddingsClient(cfg)
	case ServiceGoogle:
		return NewGoogleEmbeddingsClient(ctx, cfg)
	case ServiceLocal, "":
		return NewLocalEmbeddingsClient(cfg)
	default:
		return nil, models.NewInitializationError(
			"embeddings",
			fmt.Errorf("invalid embeddings service: %s", cfg.Embeddings.Service),
		)
	}
}

func modelOrDefault(model string, service string, defaults map[string]string) string {
	if model != "" {
		return model
	}
	return defaults[service]
}

func NewRetryableHTTPClient(retryMax int, timeout time.Duration) *retryablehttp.Client {
	retryableHTTPClient := retryablehttp.NewClient()
	retryableHTTPClient.RetryMax = retryMax
	retryableHTTPClient.HTTPClient.Timeout = timeout
	retryableHTTPClient.Logger = internal.NewLeveledLogrus(log)
	retryableHTTPClient.Backoff = retryablehttp.DefaultBackoff
	retryableHTTPClient.CheckRetry = retryPolicy

	return retryableHTTPClient
}

// retryPolicy is a retryablehttp.CheckRetry function. It is used to determine
// whether a request should be retried or not.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	// Do not retry 400 errors as they're used by OpenAI to indicate maximum
	// context length exceeded
	if resp != nil && resp.StatusCode == http.StatusBadRequest {
		return false, err
	}

	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return shouldRetry, nil
}

// checkEmbeddings verifies that a provider returned one vector per text.
func checkEmbeddings(texts []string, embeddings [][]float32) error {
	if len(embeddings) != len(texts) {
		return models.NewEmbeddingError(
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(embeddings)),
			nil,
		)
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return models.NewEmbeddingError(fmt.Sprintf("empty embedding at index %d", i), nil)
		}
	}
	return nil
}

func rejectEmptyBatch(texts []string) error {
	if len(texts) == 0 {
		return models.NewEmbeddingError("no texts to embed", nil)
	}
	return nil
}
