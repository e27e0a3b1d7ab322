package models

import "context"

// LLM generates text from a single prompt.
type LLM interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// EmbeddingsClient maps texts to vectors of a fixed dimensionality. The returned
// slice has one vector per input text, in input order.
type EmbeddingsClient interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}
