// Package badger provides a persistent VectorStore on top of an embedded Badger
// database. Similarity queries scan the collection, which suits the record counts a
// single companion accumulates.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/emotibot/emotibot/internal"
	"github.com/emotibot/emotibot/pkg/models"
	"github.com/emotibot/emotibot/pkg/store"
)

var log = internal.GetLogger()

var _ models.VectorStore = &VectorStore{}

// Config holds configuration for a badger VectorStore.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	Collection string
	Dimensions int
	InMemory   bool
	SyncWrites bool
}

// collectionInfo is persisted so a reopened database can be checked against the
// configured dimensions.
type collectionInfo struct {
	Name       string    `json:"name"`
	Dimensions int       `json:"dimensions"`
	CreatedAt  time.Time `json:"created_at"`
}

type VectorStore struct {
	store.BaseVectorStore[*badger.DB]
	seq *badger.Sequence
	// dropMu keeps queries from observing a half dropped collection
	dropMu sync.RWMutex
}

func NewVectorStore(config *Config) (*VectorStore, error) {
	if err := store.ValidateCollectionName(config.Collection); err != nil {
		return nil, models.NewInitializationError("badger store", err)
	}
	if config.Dimensions <= 0 {
		return nil, models.NewInitializationError("badger store", store.NewStorageError("dimensions must be positive", nil))
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Path)
	}
	opts = opts.WithSyncWrites(config.SyncWrites).WithLogger(log)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, models.NewInitializationError("badger store", store.NewStorageError("failed to open database", err))
	}

	s := &VectorStore{
		BaseVectorStore: store.BaseVectorStore[*badger.DB]{
			Client:     db,
			Collection: config.Collection,
			Dims:       config.Dimensions,
		},
	}

	if err := s.ensureCollection(); err != nil {
		_ = db.Close()
		return nil, models.NewInitializationError("badger store", err)
	}

	seq, err := db.GetSequence(sequenceKey(config.Collection), 100)
	if err != nil {
		_ = db.Close()
		return nil, models.NewInitializationError("badger store", store.NewStorageError("failed to create sequence", err))
	}
	s.seq = seq

	log.Infof("badger store opened collection %s with %d dimensions", config.Collection, config.Dimensions)

	return s, nil
}

// Key generation functions
func collectionKey(name string) []byte {
	return []byte(fmt.Sprintf("col:%s", name))
}

func sequenceKey(name string) []byte {
	return []byte(fmt.Sprintf("seq:%s", name))
}

func recordPrefix(name string) []byte {
	return []byte(fmt.Sprintf("rec:%s:", name))
}

// recordKey sorts in insertion order.
func recordKey(name string, seq uint64) []byte {
	return []byte(fmt.Sprintf("rec:%s:%020d", name, seq))
}

func indexPrefix(name string) []byte {
	return []byte(fmt.Sprintf("idx:%s:", name))
}

func indexKey(name, id string) []byte {
	return []byte(fmt.Sprintf("idx:%s:%s", name, id))
}

// Serialization helpers
func serialize(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, store.NewStorageError("failed to marshal value", err)
	}
	return data, nil
}

func deserialize(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return store.NewStorageError("failed to unmarshal value", err)
	}
	return nil
}

// ensureCollection creates the collection descriptor, or checks an existing one
// against the configured dimensions.
func (s *VectorStore) ensureCollection() error {
	return s.Client.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(collectionKey(s.Collection))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return s.putCollection(txn)
		}
		if err != nil {
			return store.NewStorageError("failed to read collection", err)
		}

		var info collectionInfo
		if err := item.Value(func(val []byte) error {
			return deserialize(val, &info)
		}); err != nil {
			return err
		}
		if info.Dimensions != s.Dims {
			return store.NewEmbeddingMismatchError(info.Dimensions, s.Dims)
		}
		return nil
	})
}

func (s *VectorStore) putCollection(txn *badger.Txn) error {
	data, err := serialize(collectionInfo{
		Name:       s.Collection,
		Dimensions: s.Dims,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return txn.Set(collectionKey(s.Collection), data)
}

func (s *VectorStore) Upsert(_ context.Context, records []models.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := store.ValidateRecords(records, s.Dims); err != nil {
		return err
	}

	s.dropMu.RLock()
	defer s.dropMu.RUnlock()

	keys := make([][]byte, len(records))
	for i := range records {
		n, err := s.seq.Next()
		if err != nil {
			return store.NewStorageError("failed to allocate record key", err)
		}
		keys[i] = recordKey(s.Collection, n)
	}

	err := s.Client.Update(func(txn *badger.Txn) error {
		for i, r := range records {
			_, err := txn.Get(indexKey(s.Collection, r.ID))
			if err == nil {
				return store.NewStorageError("record "+r.ID+" already exists", nil)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			data, err := serialize(r)
			if err != nil {
				return err
			}
			if err := txn.Set(keys[i], data); err != nil {
				return err
			}
			if err := txn.Set(indexKey(s.Collection, r.ID), keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrStorage) {
			return err
		}
		return store.NewStorageError("failed to write records", err)
	}

	log.Debugf("badger store wrote %d records to %s", len(records), s.Collection)
	return nil
}

// scan calls fn for every record in insertion order until fn returns false.
func (s *VectorStore) scan(fn func(r *models.MemoryRecord) bool) error {
	return s.Client.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix(s.Collection)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var r models.MemoryRecord
			if err := it.Item().Value(func(val []byte) error {
				return deserialize(val, &r)
			}); err != nil {
				return err
			}
			if !fn(&r) {
				return nil
			}
		}
		return nil
	})
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

	s.dropMu.RLock()
	defer s.dropMu.RUnlock()

	results := make([]models.QueryResult, 0)
	err := s.scan(func(r *models.MemoryRecord) bool {
		if !store.MatchesFilter(r.Metadata, filter) {
			return true
		}
		results = append(results, models.QueryResult{
			ID:       r.ID,
			Text:     r.Text,
			Kind:     r.Kind,
			Metadata: r.Metadata,
			Distance: store.CosineDistance(vector, r.Vector),
			Vector:   r.Vector,
		})
		return true
	})
	if err != nil {
		return nil, store.NewStorageError("failed to query collection", err)
	}

	return store.RankResults(results, k), nil
}

func (s *VectorStore) Get(_ context.Context, limit int) ([]models.MemoryRecord, error) {
	s.dropMu.RLock()
	defer s.dropMu.RUnlock()

	records := make([]models.MemoryRecord, 0)
	err := s.scan(func(r *models.MemoryRecord) bool {
		records = append(records, *r)
		return limit <= 0 || len(records) < limit
	})
	if err != nil {
		return nil, store.NewStorageError("failed to read collection", err)
	}
	return records, nil
}

func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.dropMu.RLock()
	defer s.dropMu.RUnlock()

	count := 0
	err := s.Client.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = indexPrefix(s.Collection)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, store.NewStorageError("failed to count collection", err)
	}
	return count, nil
}

func (s *VectorStore) DropAndRecreate(_ context.Context) error {
	s.dropMu.Lock()
	defer s.dropMu.Unlock()

	if err := s.Client.DropPrefix(recordPrefix(s.Collection), indexPrefix(s.Collection)); err != nil {
		return store.NewStorageError("failed to drop collection", err)
	}
	if err := s.Client.Update(s.putCollection); err != nil {
		return store.NewStorageError("failed to recreate collection", err)
	}

	log.Infof("badger store dropped and recreated collection %s", s.Collection)
	return nil
}

func (s *VectorStore) ConcurrentSafe() bool {
	return true
}

func (s *VectorStore) Close() error {
	if s.seq != nil {
		if err := s.seq.Release(); err != nil {
			log.Warningf("failed to release badger sequence: %v", err)
		}
	}
	return s.Client.Close()
}
