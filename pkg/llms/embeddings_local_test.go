package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/models"
)

func newLocalEmbeddingsServer(t *testing.T, vectorLength int, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		assert.Equal(t, "/embeddings/document", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var collection localEmbeddingCollection
		require.NoError(t, json.NewDecoder(r.Body).Decode(&collection))
		for i := range collection.Embeddings {
			v := make([]float32, vectorLength)
			v[i%vectorLength] = 1
			collection.Embeddings[i].Embedding = v
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(collection))
	}))
}

func localConfig(url string) *config.Config {
	return &config.Config{
		Embeddings: config.EmbeddingsConfig{
			Service:        ServiceLocal,
			Dimensions:     384,
			LocalServerURL: url,
		},
	}
}

func TestLocalEmbeddings(t *testing.T) {
	calls := 0
	server := newLocalEmbeddingsServer(t, 384, &calls)
	defer server.Close()

	client, err := NewLocalEmbeddingsClient(localConfig(server.URL + "/"))
	require.NoError(t, err)
	assert.Equal(t, 384, client.Dimensions())

	texts := []string{"Text 1", "Text 2", "Text 3"}
	embeddings, err := client.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "the batch is embedded in one request")
	require.Len(t, embeddings, len(texts))
	for _, e := range embeddings {
		assert.Len(t, e, 384)
	}
}

func TestLocalEmbeddingsEmptyBatch(t *testing.T) {
	client, err := NewLocalEmbeddingsClient(localConfig("http://localhost:1"))
	require.NoError(t, err)

	_, err = client.EmbedTexts(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrEmbedding)
}

func TestLocalEmbeddingsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewLocalEmbeddingsClient(localConfig(server.URL))
	require.NoError(t, err)

	_, err = client.EmbedTexts(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, models.ErrEmbedding)
}

func TestLocalEmbeddingsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(localEmbeddingCollection{
			Embeddings: []localEmbedding{{Text: "only one", Embedding: []float32{1}}},
		})
	}))
	defer server.Close()

	client, err := NewLocalEmbeddingsClient(localConfig(server.URL))
	require.NoError(t, err)

	_, err = client.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, models.ErrEmbedding)
}

func TestNewLocalEmbeddingsClientRequiresURL(t *testing.T) {
	_, err := NewLocalEmbeddingsClient(localConfig(""))
	assert.ErrorIs(t, err, models.ErrInitialization)
}
