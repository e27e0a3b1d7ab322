// Package inmemory provides a process-local VectorStore. Contents are lost on exit.
package inmemory

import (
	"context"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/emotibot/emotibot/pkg/models"
	"github.com/emotibot/emotibot/pkg/store"
)

var _ models.VectorStore = &VectorStore{}

type collection struct {
	records map[string]models.MemoryRecord
	order   []string
}

func newCollection() *collection {
	return &collection{records: make(map[string]models.MemoryRecord)}
}

type VectorStore struct {
	store.BaseVectorStore[*collection]
	mu sync.RWMutex
}

func NewVectorStore(collectionName string, dims int) (*VectorStore, error) {
	if collectionName == "" {
		return nil, models.NewInitializationError("in-memory store", store.NewStorageError("collection name is empty", nil))
	}
	if dims <= 0 {
		return nil, models.NewInitializationError("in-memory store", store.NewStorageError("dimensions must be positive", nil))
	}
	return &VectorStore{
		BaseVectorStore: store.BaseVectorStore[*collection]{
			Client:     newCollection(),
			Collection: collectionName,
			Dims:       dims,
		},
	}, nil
}

func (s *VectorStore) Upsert(_ context.Context, records []models.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := store.ValidateRecords(records, s.Dims); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if _, ok := s.Client.records[r.ID]; ok {
			return store.NewStorageError("record "+r.ID+" already exists", nil)
		}
	}

	copies := make([]models.MemoryRecord, len(records))
	for i, r := range records {
		c, err := cloneRecord(r)
		if err != nil {
			return err
		}
		copies[i] = c
	}
	for _, r := range copies {
		s.Client.records[r.ID] = r
		s.Client.order = append(s.Client.order, r.ID)
	}
	return nil
}

// cloneRecord deep copies a record so callers cannot mutate stored state.
func cloneRecord(r models.MemoryRecord) (models.MemoryRecord, error) {
	out := r
	out.Vector = append([]float32(nil), r.Vector...)
	out.Metadata = nil
	if err := copier.CopyWithOption(&out.Metadata, &r.Metadata, copier.Option{DeepCopy: true}); err != nil {
		return models.MemoryRecord{}, store.NewStorageError("failed to copy record metadata", err)
	}
	return out, nil
}

func (s *VectorStore) Query(
	_ context.Context,
	vector []float32,
	k int,
	filter models.MetadataFilter,
) ([]models.QueryResult, error) {
	if err := store.CheckDimensions(vector, s.Dims); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []models.QueryResult{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.QueryResult, 0, len(s.Client.order))
	for _, id := range s.Client.order {
		r := s.Client.records[id]
		if !store.MatchesFilter(r.Metadata, filter) {
			continue
		}
		c, err := cloneRecord(r)
		if err != nil {
			return nil, err
		}
		results = append(results, models.QueryResult{
			ID:       c.ID,
			Text:     c.Text,
			Kind:     c.Kind,
			Metadata: c.Metadata,
			Distance: store.CosineDistance(vector, r.Vector),
			Vector:   c.Vector,
		})
	}

	return store.RankResults(results, k), nil
}

func (s *VectorStore) Get(_ context.Context, limit int) ([]models.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.Client.order
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	records := make([]models.MemoryRecord, len(ids))
	for i, id := range ids {
		c, err := cloneRecord(s.Client.records[id])
		if err != nil {
			return nil, err
		}
		records[i] = c
	}
	return records, nil
}

func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Client.order), nil
}

func (s *VectorStore) DropAndRecreate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Client = newCollection()
	return nil
}

func (s *VectorStore) ConcurrentSafe() bool {
	return true
}

func (s *VectorStore) Close() error {
	return nil
}
