package search

import (
	"github.com/emotibot/emotibot/pkg/models"
)

const DefaultMMRLambda = 0.5

// RerankMMR orders results by maximal marginal relevance to query and keeps the first k.
// Every result must carry its vector. A lambda outside (0, 1] selects DefaultMMRLambda.
func RerankMMR(
	query []float32,
	results []models.QueryResult,
	lambda float64,
	k int,
) ([]models.QueryResult, error) {
	if lambda <= 0 || lambda > 1 {
		lambda = DefaultMMRLambda
	}

	vectors := make([][]float32, len(results))
	for i, r := range results {
		vectors[i] = r.Vector
	}

	idxs, err := MaximalMarginalRelevance(query, vectors, lambda, k)
	if err != nil {
		return nil, err
	}

	reranked := make([]models.QueryResult, len(idxs))
	for i, idx := range idxs {
		reranked[i] = results[idx]
	}
	return reranked, nil
}
