package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/emotibot/emotibot/pkg/models"
)

func TestCosineSimilarity(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	Y := mat.NewDense(3, 2, []float64{1, 0, 1, 1, 0, 0})

	sim, err := CosineSimilarity(X, Y)
	require.NoError(t, err)

	r, c := sim.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.InDelta(t, 1.0, sim.At(0, 0), 1e-9)
	assert.InDelta(t, 0.7071067811865475, sim.At(1, 1), 1e-9)
	// zero vectors have no direction
	assert.Equal(t, 0.0, sim.At(0, 2))

	_, err = CosineSimilarity(X, mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestMaximalMarginalRelevance(t *testing.T) {
	queryEmbedding := []float32{0.1, 0.2, 0.3, 0.4, 0.5}

	t.Run("MismatchedVectorWidths", func(t *testing.T) {
		embeddingList := [][]float32{
			{0.1, 0.2, 0.3},
			{0.2, 0.3, 0.4, 0.5, 0.5},
		}
		_, err := MaximalMarginalRelevance(queryEmbedding, embeddingList, 0.5, 2)
		assert.Error(t, err)
	})

	embeddingList := [][]float32{
		{0.1, 0.2, 0.3, 0.4, 0.4},
		{0.2, 0.3, 0.4, 0.5, 0.5},
		{0.1, 0.2, 0.3, 0.4, 0.6},
		{0.1, 0.0, 0.0, 0.0, 0.0},
		{0.0, 0.1, 0.0, 0.0, 0.0},
	}

	tests := []struct {
		name       string
		embeddings [][]float32
		lambda     float64
		k          int
		expected   []int
	}{
		{"Ranking", embeddingList[:4], 0.5, 2, []int{2, 1}},
		{"RelevanceOnly", embeddingList[:3], 1.0, 2, []int{2, 0}},
		{"DiversityOnly", embeddingList, 0.0, 3, []int{2, 3, 4}},
		{"KLargerThanList", embeddingList, 0.5, 10, []int{2, 4, 1, 0, 3}},
		{"ZeroK", embeddingList, 0.5, 0, []int{}},
		{"EmptyList", nil, 0.5, 3, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MaximalMarginalRelevance(queryEmbedding, tt.embeddings, tt.lambda, tt.k)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRerankMMR(t *testing.T) {
	query := []float32{1, 0}
	results := []models.QueryResult{
		{ID: "a", Vector: []float32{1, 0}, Distance: 0},
		{ID: "a-copy", Vector: []float32{1, 0}, Distance: 0},
		{ID: "b", Vector: []float32{1, 1}, Distance: 0.29},
	}

	reranked, err := RerankMMR(query, results, 0.3, 2)
	require.NoError(t, err)
	require.Len(t, reranked, 2)
	assert.Equal(t, "a", reranked[0].ID)
	// the exact duplicate is passed over for the more diverse result
	assert.Equal(t, "b", reranked[1].ID)

	reranked, err = RerankMMR(query, results, 1.0, 2)
	require.NoError(t, err)
	assert.Equal(t, "a-copy", reranked[1].ID)

	_, err = RerankMMR(query, []models.QueryResult{{ID: "novec"}}, 0.5, 1)
	assert.Error(t, err)
}
