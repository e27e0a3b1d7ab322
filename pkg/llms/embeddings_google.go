package llms

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/models"
)

var _ models.EmbeddingsClient = &GoogleEmbeddingsClient{}

type GoogleEmbeddingsClient struct {
	client     *genai.Client
	model      string
	dimensions int
}

func NewGoogleEmbeddingsClient(ctx context.Context, cfg *config.Config) (*GoogleEmbeddingsClient, error) {
	if cfg.Embeddings.GoogleAPIKey == "" {
		return nil, models.NewInitializationError("google embeddings", errors.New(GoogleAPIKeyNotSetError))
	}

	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(cfg.Embeddings.GoogleAPIKey))
	if err != nil {
		return nil, models.NewInitializationError("google embeddings", err)
	}

	return &GoogleEmbeddingsClient{
		client:     client,
		model:      modelOrDefault(cfg.Embeddings.Model, ServiceGoogle, DefaultEmbeddingModels),
		dimensions: cfg.Embeddings.Dimensions,
	}, nil
}

// EmbedTexts embeds the whole batch with one BatchEmbedContents call.
func (c *GoogleEmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := rejectEmptyBatch(texts); err != nil {
		return nil, err
	}

	em := c.client.EmbeddingModel(c.model)
	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	rsp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, models.NewEmbeddingError("google batch embeddings request failed", err)
	}

	embeddings := make([][]float32, len(rsp.Embeddings))
	for i, e := range rsp.Embeddings {
		if e != nil {
			embeddings[i] = e.Values
		}
	}

	if err := checkEmbeddings(texts, embeddings); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (c *GoogleEmbeddingsClient) Dimensions() int {
	return c.dimensions
}

func (c *GoogleEmbeddingsClient) Close() error {
	return c.client.Close()
}
