package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/models"
)

const (
	localEmbeddingsTimeout     = 30 * time.Second
	localEmbeddingsMaxAttempts = 3
)

// LocalEmbeddingsClient calls a sentence-transformer server running next to the
// assistant. The server receives a collection of texts and returns it with the
// embedding of each text filled in.
type LocalEmbeddingsClient struct {
	client     *retryablehttp.Client
	url        string
	model      string
	dimensions int
}

var _ models.EmbeddingsClient = &LocalEmbeddingsClient{}

type localEmbedding struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type localEmbeddingCollection struct {
	Model      string           `json:"model,omitempty"`
	Embeddings []localEmbedding `json:"embeddings"`
}

func NewLocalEmbeddingsClient(cfg *config.Config) (*LocalEmbeddingsClient, error) {
	if cfg.Embeddings.LocalServerURL == "" {
		return nil, models.NewInitializationError(
			"local embeddings",
			fmt.Errorf("embeddings.local_server_url is not set"),
		)
	}

	return &LocalEmbeddingsClient{
		client:     NewRetryableHTTPClient(localEmbeddingsMaxAttempts, localEmbeddingsTimeout),
		url:        strings.TrimRight(cfg.Embeddings.LocalServerURL, "/") + "/embeddings/document",
		model:      modelOrDefault(cfg.Embeddings.Model, ServiceLocal, DefaultEmbeddingModels),
		dimensions: cfg.Embeddings.Dimensions,
	}, nil
}

func (c *LocalEmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := rejectEmptyBatch(texts); err != nil {
		return nil, err
	}

	documents := make([]localEmbedding, len(texts))
	for i, text := range texts {
		documents[i] = localEmbedding{Text: text}
	}
	collection := localEmbeddingCollection{
		Model:      c.model,
		Embeddings: documents,
	}
	jsonBody, err := json.Marshal(collection)
	if err != nil {
		return nil, models.NewEmbeddingError("error marshaling request body", err)
	}

	bodyBytes, err := c.makeEmbedRequest(ctx, jsonBody)
	if err != nil {
		return nil, models.NewEmbeddingError("local embeddings request failed", err)
	}

	var result localEmbeddingCollection
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, models.NewEmbeddingError("error unmarshaling response body", err)
	}

	m := make([][]float32, len(result.Embeddings))
	for i := range result.Embeddings {
		m[i] = result.Embeddings[i].Embedding
	}

	if err := checkEmbeddings(texts, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *LocalEmbeddingsClient) makeEmbedRequest(ctx context.Context, jsonBody []byte) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error making POST request: %d - %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func (c *LocalEmbeddingsClient) Dimensions() int {
	return c.dimensions
}
