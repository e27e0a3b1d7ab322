package inmemory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotibot/emotibot/pkg/models"
	"github.com/emotibot/emotibot/pkg/store"
)

func TestVectorStoreSuite(t *testing.T) {
	suite := &store.VectorStoreTestSuite{
		NewStore: func(t *testing.T, dims int) models.VectorStore {
			vs, err := NewVectorStore("test_memory", dims)
			require.NoError(t, err)
			return vs
		},
	}

	suite.RunAllTests(t)
}

func TestNewVectorStoreValidation(t *testing.T) {
	_, err := NewVectorStore("", 4)
	assert.ErrorIs(t, err, models.ErrInitialization)

	_, err = NewVectorStore("test", 0)
	assert.ErrorIs(t, err, models.ErrInitialization)
}
