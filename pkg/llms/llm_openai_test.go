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

func newOpenAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "I'm here for you."}, "finish_reason": "stop"}]
		}`))
	})
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input      []string `json:"input"`
			Dimensions int      `json:"dimensions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 8, req.Dimensions)

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		rsp := struct {
			Object string `json:"object"`
			Data   []item `json:"data"`
		}{Object: "list"}
		// answer in reverse order to check the index mapping
		for i := len(req.Input) - 1; i >= 0; i-- {
			v := make([]float32, 8)
			v[i%8] = 1
			rsp.Data = append(rsp.Data, item{Object: "embedding", Index: i, Embedding: v})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(rsp))
	})
	return httptest.NewServer(mux)
}

func TestOpenAILLMCall(t *testing.T) {
	server := newOpenAIServer(t)
	defer server.Close()

	llm, err := NewOpenAILLM(&config.Config{LLM: config.LLM{
		Service:        ServiceOpenAI,
		OpenAIAPIKey:   "sk-test",
		OpenAIEndpoint: server.URL + "/v1",
	}})
	require.NoError(t, err)

	reply, err := llm.Call(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "I'm here for you.", reply)
}

func TestOpenAIEmbeddings(t *testing.T) {
	server := newOpenAIServer(t)
	defer server.Close()

	client, err := NewOpenAIEmbeddingsClient(&config.Config{Embeddings: config.EmbeddingsConfig{
		Service:        ServiceOpenAI,
		Dimensions:     8,
		OpenAIAPIKey:   "sk-test",
		OpenAIEndpoint: server.URL + "/v1",
	}})
	require.NoError(t, err)

	embeddings, err := client.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, embeddings, 3)
	for i, e := range embeddings {
		assert.Equal(t, float32(1), e[i], "embedding %d is in input order", i)
	}
}

func TestNewOpenAIClientsRequireKey(t *testing.T) {
	_, err := NewOpenAILLM(&config.Config{})
	assert.ErrorIs(t, err, models.ErrInitialization)

	_, err = NewOpenAIEmbeddingsClient(&config.Config{})
	assert.ErrorIs(t, err, models.ErrInitialization)
}
