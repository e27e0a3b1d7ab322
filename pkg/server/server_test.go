package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emotibot/emotibot/config"
	"github.com/emotibot/emotibot/pkg/assistant"
	"github.com/emotibot/emotibot/pkg/emotion"
	"github.com/emotibot/emotibot/pkg/memory"
	"github.com/emotibot/emotibot/pkg/metrics"
	"github.com/emotibot/emotibot/pkg/models"
	"github.com/emotibot/emotibot/pkg/store/inmemory"
	"github.com/emotibot/emotibot/pkg/testutils"
)

const testDims = 32

var testCtx = context.Background()

type testServer struct {
	*httptest.Server
	appState *models.AppState
	store    *inmemory.VectorStore
	llm      *testutils.FakeLLM
}

func newTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8000,
			MaxRequestSize: 4096,
		},
		Auth: config.AuthConfig{
			Secret: "test-secret",
		},
	}
}

// newTestServer wires an in-memory app state. mutate, when set, adjusts the
// config before the router is built.
func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()

	cfg := newTestConfig()
	if mutate != nil {
		mutate(cfg)
	}

	vs, err := inmemory.NewVectorStore("test_server", testDims)
	require.NoError(t, err)

	llm := &testutils.FakeLLM{Response: "I'm here for you."}
	mm := metrics.NewManager(metrics.DefaultConfig())
	manager, err := memory.NewManager(
		testCtx,
		vs,
		testutils.NewHashEmbedder(testDims),
		memory.WithLLM(llm),
		memory.WithMetrics(mm),
	)
	require.NoError(t, err)
	scorer := emotion.NewScorer()

	appState := &models.AppState{
		Config:     cfg,
		Store:      vs,
		Embeddings: testutils.NewHashEmbedder(testDims),
		LLM:        llm,
		Memory:     manager,
		Scorer:     scorer,
		Assistant: assistant.NewAssistant(
			assistant.WithScorer(scorer),
			assistant.WithMemory(manager),
			assistant.WithLLM(llm),
			assistant.WithMetrics(mm),
		),
		Sessions: models.NewSessionRegistry(10),
		Metrics:  mm,
	}

	router, err := setupRouter(appState)
	require.NoError(t, err)

	ts := &testServer{
		Server:   httptest.NewServer(router),
		appState: appState,
		store:    vs,
		llm:      llm,
	}
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		j, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(j)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
