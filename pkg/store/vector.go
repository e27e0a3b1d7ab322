package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/emotibot/emotibot/pkg/models"
)

// CosineDistance returns 1 - cosine similarity of a and b. Zero vectors and vectors of
// different widths are at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}
	x := blas32.Vector{N: len(a), Inc: 1, Data: a}
	y := blas32.Vector{N: len(b), Inc: 1, Data: b}
	normA := float64(blas32.Nrm2(x))
	normB := float64(blas32.Nrm2(y))
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - blas32.DDot(x, y)/(normA*normB)
}

// ValidateRecords checks a batch before it is written: every record needs an id, a
// kind and a vector of the collection's width, and ids must be unique in the batch.
func ValidateRecords(records []models.MemoryRecord, dims int) error {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		r := &records[i]
		if r.ID == "" {
			return NewStorageError(fmt.Sprintf("record %d has no id", i), nil)
		}
		if _, ok := seen[r.ID]; ok {
			return NewStorageError(fmt.Sprintf("duplicate record id %s in batch", r.ID), nil)
		}
		seen[r.ID] = struct{}{}
		if r.Kind == "" {
			return NewStorageError(fmt.Sprintf("record %s has no kind", r.ID), nil)
		}
		if err := CheckDimensions(r.Vector, dims); err != nil {
			return err
		}
	}
	return nil
}

func CheckDimensions(vector []float32, dims int) error {
	if len(vector) != dims {
		return NewEmbeddingMismatchError(dims, len(vector))
	}
	return nil
}

// MatchesFilter reports whether metadata contains every key of filter with an equal
// value. Values are compared after a JSON round trip so that numbers decoded from
// storage compare equal to the ints and floats callers pass in.
func MatchesFilter(metadata map[string]interface{}, filter models.MetadataFilter) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(normalize(got), normalize(want)) {
			return false
		}
	}
	return true
}

func normalize(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// RankResults sorts results by ascending distance, ties by id, and keeps the first k.
func RankResults(results []models.QueryResult, k int) []models.QueryResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance == results[j].Distance {
			return results[i].ID < results[j].ID
		}
		return results[i].Distance < results[j].Distance
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
