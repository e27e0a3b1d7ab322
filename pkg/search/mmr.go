// Package search reranks similarity results for diversity.
package search

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CosineSimilarity returns the rX x rY matrix of cosine similarities between the rows
// of X and the rows of Y. X and Y must have the same number of columns.
func CosineSimilarity(X, Y *mat.Dense) (*mat.Dense, error) { // nolint: gocritic
	rX, cX := X.Dims()
	rY, cY := Y.Dims()

	if cX != cY {
		return nil, fmt.Errorf(
			"number of columns in X and Y must be the same. X has shape [%d, %d] and Y has shape [%d, %d]",
			rX,
			cX,
			rY,
			cY,
		)
	}

	Xnorm := make([]float64, rX)
	Ynorm := make([]float64, rY)
	for i := 0; i < rX; i++ {
		Xnorm[i] = mat.Norm(X.RowView(i), 2)
	}
	for i := 0; i < rY; i++ {
		Ynorm[i] = mat.Norm(Y.RowView(i), 2)
	}

	similarity := mat.NewDense(rX, rY, nil)
	similarity.Product(X, Y.T())

	for i := 0; i < rX; i++ {
		for j := 0; j < rY; j++ {
			val := similarity.At(i, j) / (Xnorm[i] * Ynorm[j])
			if math.IsNaN(val) || math.IsInf(val, 0) {
				val = 0.0
			}
			similarity.Set(i, j, val)
		}
	}

	return similarity, nil
}

// toDense stacks the vectors as rows of a matrix. Every vector must have width columns.
func toDense(vectors [][]float32, width int) (*mat.Dense, error) {
	data := make([]float64, 0, len(vectors)*width)
	for i, v := range vectors {
		if len(v) != width {
			return nil, fmt.Errorf("vector %d has width %d, expected %d", i, len(v), width)
		}
		for _, x := range v {
			data = append(data, float64(x))
		}
	}
	return mat.NewDense(len(vectors), width, data), nil
}

// MaximalMarginalRelevance selects up to k indices of embeddingList, trading relevance
// to the query against similarity to the indices already selected. lambdaMult = 1
// ranks by relevance only, 0 by diversity only.
// See https://www.cs.cmu.edu/~jgc/publication/The_Use_MMR_Diversity_Based_LTMIR_1998.pdf
func MaximalMarginalRelevance(
	queryEmbedding []float32,
	embeddingList [][]float32,
	lambdaMult float64,
	k int,
) ([]int, error) {
	n := len(embeddingList)
	if k <= 0 || n == 0 {
		return []int{}, nil
	}
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	width := len(queryEmbedding)
	query, err := toDense([][]float32{queryEmbedding}, width)
	if err != nil {
		return nil, err
	}
	embeddings, err := toDense(embeddingList, width)
	if err != nil {
		return nil, err
	}

	similarityToQuery, err := CosineSimilarity(query, embeddings)
	if err != nil {
		return nil, err
	}
	queryScores := similarityToQuery.RawRowView(0)

	pairwise, err := CosineSimilarity(embeddings, embeddings)
	if err != nil {
		return nil, err
	}

	selected := make([]bool, n)
	mostSimilar := floats.MaxIdx(queryScores)
	idxs := []int{mostSimilar}
	selected[mostSimilar] = true

	redundancy := make([]float64, 0, k)
	for len(idxs) < min(k, n) {
		bestScore := math.Inf(-1)
		idxToAdd := -1
		for i, queryScore := range queryScores {
			if selected[i] {
				continue
			}
			redundancy = redundancy[:0]
			for _, j := range idxs {
				redundancy = append(redundancy, pairwise.At(i, j))
			}
			equationScore := lambdaMult*queryScore - (1-lambdaMult)*floats.Max(redundancy)
			if equationScore > bestScore {
				bestScore = equationScore
				idxToAdd = i
			}
		}
		idxs = append(idxs, idxToAdd)
		selected[idxToAdd] = true
	}
	return idxs, nil
}
