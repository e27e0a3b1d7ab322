package llms

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/models"
)

var _ models.EmbeddingsClient = &OpenAIEmbeddingsClient{}

type OpenAIEmbeddingsClient struct {
	client     *openai.Client
	model      string
	dimensions int
}

func NewOpenAIEmbeddingsClient(cfg *config.Config) (*OpenAIEmbeddingsClient, error) {
	if cfg.Embeddings.OpenAIAPIKey == "" {
		return nil, models.NewInitializationError("openai embeddings", errors.New(OpenAIAPIKeyNotSetError))
	}

	return &OpenAIEmbeddingsClient{
		client:     newOpenAIClient(cfg.Embeddings.OpenAIAPIKey, cfg.Embeddings.OpenAIEndpoint),
		model:      modelOrDefault(cfg.Embeddings.Model, ServiceOpenAI, DefaultEmbeddingModels),
		dimensions: cfg.Embeddings.Dimensions,
	}, nil
}

// EmbedTexts embeds the whole batch in a single request.
func (c *OpenAIEmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := rejectEmptyBatch(texts); err != nil {
		return nil, err
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	}
	// only the v3 models accept a requested width
	if strings.HasPrefix(c.model, "text-embedding-3") {
		req.Dimensions = c.dimensions
	}

	rsp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, models.NewEmbeddingError("openai embeddings request failed", err)
	}

	embeddings := make([][]float32, len(rsp.Data))
	for i, d := range rsp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
			continue
		}
		embeddings[i] = d.Embedding
	}

	if err := checkEmbeddings(texts, embeddings); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (c *OpenAIEmbeddingsClient) Dimensions() int {
	return c.dimensions
}
