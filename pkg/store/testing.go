package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotibot/emotibot/pkg/models"
)

const suiteDims = 4

// VectorStoreTestSuite runs the behaviour every VectorStore adapter must share.
// NewStore must return an empty store with suiteDims dimensions.
type VectorStoreTestSuite struct {
	NewStore func(t *testing.T, dims int) models.VectorStore
}

// RunAllTests runs all vector store tests against the provided implementation.
func (s *VectorStoreTestSuite) RunAllTests(t *testing.T) {
	t.Run("UpsertAndGet", s.TestUpsertAndGet)
	t.Run("QueryOrdering", s.TestQueryOrdering)
	t.Run("QueryFilter", s.TestQueryFilter)
	t.Run("DimensionMismatch", s.TestDimensionMismatch)
	t.Run("DuplicateIDs", s.TestDuplicateIDs)
	t.Run("DropAndRecreate", s.TestDropAndRecreate)
	t.Run("EmptyStore", s.TestEmptyStore)
}

func suiteRecord(id string, kind models.RecordKind, vector []float32, metadata map[string]interface{}) models.MemoryRecord {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata[models.MetaType] = string(kind)
	return models.MemoryRecord{
		ID:        id,
		Text:      "text of " + id,
		Vector:    vector,
		Kind:      kind,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *VectorStoreTestSuite) TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	vs := s.NewStore(t, suiteDims)

	records := make([]models.MemoryRecord, 5)
	for i := range records {
		records[i] = suiteRecord(
			fmt.Sprintf("doc-%d", i),
			models.KindDocument,
			[]float32{float32(i + 1), 0, 0, 1},
			map[string]interface{}{models.MetaChunkIndex: i, models.MetaTotalChunks: len(records)},
		)
	}
	require.NoError(t, vs.Upsert(ctx, records))

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	got, err := vs.Get(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, r := range got {
		assert.Equal(t, records[i].ID, r.ID, "records come back oldest first")
		assert.Equal(t, records[i].Text, r.Text)
		assert.Equal(t, models.KindDocument, r.Kind)
		assert.Equal(t, "document", r.Metadata[models.MetaType])
		assert.EqualValues(t, i, r.Metadata[models.MetaChunkIndex])
		assert.Len(t, r.Vector, suiteDims)
	}

	limited, err := vs.Get(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// mutating returned records does not change the store
	got[0].Metadata[models.MetaType] = "changed"
	again, err := vs.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "document", again[0].Metadata[models.MetaType])
}

func (s *VectorStoreTestSuite) TestQueryOrdering(t *testing.T) {
	ctx := context.Background()
	vs := s.NewStore(t, suiteDims)

	require.NoError(t, vs.Upsert(ctx, []models.MemoryRecord{
		suiteRecord("far", models.KindDocument, []float32{0, 0, 0, 1}, nil),
		suiteRecord("near", models.KindDocument, []float32{1, 0.1, 0, 0}, nil),
		suiteRecord("middle", models.KindConversation, []float32{1, 1, 0, 0}, nil),
	}))

	results, err := vs.Query(ctx, []float32{1, 0, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].ID)
	assert.Equal(t, "middle", results[1].ID)
	assert.Equal(t, "far", results[2].ID)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
	assert.Equal(t, models.KindConversation, results[1].Kind)
	assert.Equal(t, "text of near", results[0].Text)

	top, err := vs.Query(ctx, []float32{1, 0, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "near", top[0].ID)
}

func (s *VectorStoreTestSuite) TestQueryFilter(t *testing.T) {
	ctx := context.Background()
	vs := s.NewStore(t, suiteDims)

	require.NoError(t, vs.Upsert(ctx, []models.MemoryRecord{
		suiteRecord("doc", models.KindDocument, []float32{1, 0, 0, 0}, map[string]interface{}{"source": "a.txt"}),
		suiteRecord("conv", models.KindConversation, []float32{1, 0, 0, 0}, nil),
	}))

	results, err := vs.Query(ctx, []float32{1, 0, 0, 0}, 5, models.MetadataFilter{"type": "conversation"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "conv", results[0].ID)

	results, err = vs.Query(ctx, []float32{1, 0, 0, 0}, 5, models.MetadataFilter{"source": "a.txt"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc", results[0].ID)

	results, err = vs.Query(ctx, []float32{1, 0, 0, 0}, 5, models.MetadataFilter{"source": "b.txt"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func (s *VectorStoreTestSuite) TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	vs := s.NewStore(t, suiteDims)

	err := vs.Upsert(ctx, []models.MemoryRecord{
		suiteRecord("ok", models.KindDocument, []float32{1, 0, 0, 0}, nil),
		suiteRecord("bad", models.KindDocument, []float32{1, 0}, nil),
	})
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "a rejected batch writes nothing")

	_, err = vs.Query(ctx, []float32{1}, 1, nil)
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func (s *VectorStoreTestSuite) TestDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	vs := s.NewStore(t, suiteDims)

	require.NoError(t, vs.Upsert(ctx, []models.MemoryRecord{
		suiteRecord("dup", models.KindDocument, []float32{1, 0, 0, 0}, nil),
	}))

	err := vs.Upsert(ctx, []models.MemoryRecord{
		suiteRecord("new", models.KindDocument, []float32{1, 0, 0, 0}, nil),
		suiteRecord("dup", models.KindDocument, []float32{0, 1, 0, 0}, nil),
	})
	assert.ErrorIs(t, err, models.ErrStorage)

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func (s *VectorStoreTestSuite) TestDropAndRecreate(t *testing.T) {
	ctx := context.Background()
	vs := s.NewStore(t, suiteDims)
	name := vs.CollectionName()

	require.NoError(t, vs.Upsert(ctx, []models.MemoryRecord{
		suiteRecord("a", models.KindDocument, []float32{1, 0, 0, 0}, nil),
	}))
	require.NoError(t, vs.DropAndRecreate(ctx))

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, name, vs.CollectionName())
	assert.Equal(t, suiteDims, vs.Dimensions())

	// the recreated collection accepts writes with the same configuration
	require.NoError(t, vs.Upsert(ctx, []models.MemoryRecord{
		suiteRecord("a", models.KindDocument, []float32{1, 0, 0, 0}, nil),
	}))
	count, err = vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func (s *VectorStoreTestSuite) TestEmptyStore(t *testing.T) {
	ctx := context.Background()
	vs := s.NewStore(t, suiteDims)

	results, err := vs.Query(ctx, []float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	records, err := vs.Get(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, vs.Upsert(ctx, nil))
}
