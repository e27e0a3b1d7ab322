package testutils

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/emotibot/emotibot/pkg/models"
)

var (
	_ models.EmbeddingsClient = &HashEmbedder{}
	_ models.LLM              = &FakeLLM{}
)

// HashEmbedder produces deterministic bag-of-words vectors: each lowercased word is
// hashed into one of Dims buckets. Texts sharing words are close in cosine distance.
type HashEmbedder struct {
	Dims int
	// Err, when set, is returned by every call.
	Err error

	mu      sync.Mutex
	calls   int
	batches [][]string
}

func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{Dims: dims}
}

func (e *HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.batches = append(e.batches, append([]string(nil), texts...))
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, models.NewEmbeddingError("embedding cancelled", err)
	}
	if len(texts) == 0 {
		return nil, models.NewEmbeddingError("no texts to embed", nil)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = HashVector(text, e.Dims)
	}
	return vectors, nil
}

func (e *HashEmbedder) Dimensions() int {
	return e.Dims
}

// Calls returns the number of EmbedTexts calls made so far.
func (e *HashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Batches returns the texts of every EmbedTexts call, in call order.
func (e *HashEmbedder) Batches() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.batches...)
}

func HashVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(dims)] += 1
	}
	return v
}

var ErrFakeLLM = errors.New("fake llm failure")

// FakeLLM returns Response, or Err when set, and records every prompt.
type FakeLLM struct {
	Response string
	Err      error
	// Block makes Call wait for ctx to be done.
	Block bool
	// Delay makes Call take this long unless ctx is done first.
	Delay time.Duration

	mu      sync.Mutex
	prompts []string
}

func (l *FakeLLM) Call(ctx context.Context, prompt string) (string, error) {
	l.mu.Lock()
	l.prompts = append(l.prompts, prompt)
	l.mu.Unlock()

	if l.Block {
		<-ctx.Done()
		return "", models.NewGenerationError("generation cancelled", ctx.Err())
	}
	if l.Delay > 0 {
		select {
		case <-time.After(l.Delay):
		case <-ctx.Done():
			return "", models.NewGenerationError("generation cancelled", ctx.Err())
		}
	}
	if l.Err != nil {
		return "", l.Err
	}
	return l.Response, nil
}

func (l *FakeLLM) Prompts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.prompts...)
}
