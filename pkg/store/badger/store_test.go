package badger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotibot/emotibot/pkg/models"
	"github.com/emotibot/emotibot/pkg/store"
)

// TestBadgerVectorStoreSuite runs the full vector store suite against a disk backed store.
func TestBadgerVectorStoreSuite(t *testing.T) {
	suite := &store.VectorStoreTestSuite{
		NewStore: func(t *testing.T, dims int) models.VectorStore {
			tmpDir, err := os.MkdirTemp("", "badger-test-*")
			require.NoError(t, err)
			t.Cleanup(func() {
				os.RemoveAll(tmpDir)
			})

			vs, err := NewVectorStore(&Config{
				Path:       tmpDir,
				Collection: "test_memory",
				Dimensions: dims,
			})
			require.NoError(t, err)
			t.Cleanup(func() {
				vs.Close()
			})
			return vs
		},
	}

	suite.RunAllTests(t)
}

func TestBadgerVectorStoreInMemory(t *testing.T) {
	vs, err := NewVectorStore(&Config{
		Collection: "test_memory",
		Dimensions: 3,
		InMemory:   true,
	})
	require.NoError(t, err)
	defer vs.Close()

	ctx := context.Background()
	require.NoError(t, vs.Upsert(ctx, []models.MemoryRecord{{
		ID:        "a",
		Text:      "hello",
		Vector:    []float32{1, 0, 0},
		Kind:      models.KindDocument,
		CreatedAt: time.Now(),
	}}))

	count, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBadgerVectorStoreReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "badger-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()
	config := &Config{Path: tmpDir, Collection: "test_memory", Dimensions: 3}

	vs, err := NewVectorStore(config)
	require.NoError(t, err)
	require.NoError(t, vs.Upsert(ctx, []models.MemoryRecord{
		{ID: "first", Text: "one", Vector: []float32{1, 0, 0}, Kind: models.KindDocument},
		{ID: "second", Text: "two", Vector: []float32{0, 1, 0}, Kind: models.KindConversation},
	}))
	require.NoError(t, vs.Close())

	vs, err = NewVectorStore(config)
	require.NoError(t, err)

	require.NoError(t, vs.Upsert(ctx, []models.MemoryRecord{
		{ID: "third", Text: "three", Vector: []float32{0, 0, 1}, Kind: models.KindDocument},
	}))

	records, err := vs.Get(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "first", records[0].ID)
	assert.Equal(t, "second", records[1].ID)
	assert.Equal(t, "third", records[2].ID)
	require.NoError(t, vs.Close())

	// a collection keeps the width it was created with
	_, err = NewVectorStore(&Config{Path: tmpDir, Collection: "test_memory", Dimensions: 5})
	assert.ErrorIs(t, err, models.ErrInitialization)
	assert.ErrorIs(t, err, store.ErrEmbeddingMismatch)
}

func TestNewVectorStoreValidation(t *testing.T) {
	_, err := NewVectorStore(&Config{InMemory: true, Dimensions: 3})
	assert.ErrorIs(t, err, models.ErrInitialization)

	_, err = NewVectorStore(&Config{InMemory: true, Collection: "x"})
	assert.ErrorIs(t, err, models.ErrInitialization)

	// "a:b" would share the record prefix of collection "a"
	for _, name := range []string{"a:b", "notes/2024", "my-memory"} {
		_, err = NewVectorStore(&Config{InMemory: true, Collection: name, Dimensions: 3})
		assert.ErrorIs(t, err, models.ErrInitialization, name)
		assert.ErrorIs(t, err, models.ErrStorage, name)
	}
}
