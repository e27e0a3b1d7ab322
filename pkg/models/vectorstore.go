package models

import "context"

// MetadataFilter restricts a query to records whose metadata contains every key
// with an equal value.
type MetadataFilter map[string]interface{}

// VectorStore is a single named collection of MemoryRecords with a fixed vector
// dimensionality.
type VectorStore interface {
	// Upsert inserts the records as one batch. Either all records are written or none.
	Upsert(ctx context.Context, records []MemoryRecord) error
	// Query returns at most k records nearest to vector, ordered by ascending cosine distance.
	Query(ctx context.Context, vector []float32, k int, filter MetadataFilter) ([]QueryResult, error)
	// Get returns at most limit records, oldest first. A limit <= 0 returns every record.
	Get(ctx context.Context, limit int) ([]MemoryRecord, error)
	Count(ctx context.Context) (int, error)
	// DropAndRecreate deletes every record and recreates the empty collection with the
	// same name and configuration.
	DropAndRecreate(ctx context.Context) error
	CollectionName() string
	Dimensions() int
	// ConcurrentSafe reports whether the store may be called from multiple goroutines.
	ConcurrentSafe() bool
	Close() error
}
