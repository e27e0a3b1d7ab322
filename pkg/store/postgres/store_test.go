package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/emotibot/emotibot/pkg/models"
	"github.com/emotibot/emotibot/pkg/store"
	"github.com/emotibot/emotibot/pkg/testutils"
)

// testDSN returns the database used by the integration tests. They are skipped when it is unset.
func testDSN(t *testing.T) string {
	dsn := os.Getenv("EMOTIBOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EMOTIBOT_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func newTestDB(t *testing.T) *bun.DB {
	db, err := NewPostgresConn(testDSN(t))
	require.NoError(t, err)
	testutils.SetUpDBLogging(db, log)
	return db
}

func randomCollection() string {
	return "test_" + testutils.GenerateRandomString(16)
}

func TestPostgresVectorStoreSuite(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	suite := &store.VectorStoreTestSuite{
		NewStore: func(t *testing.T, dims int) models.VectorStore {
			name := randomCollection()
			vs, err := NewVectorStore(context.Background(), db, name, dims)
			require.NoError(t, err)
			t.Cleanup(func() {
				_, _ = db.NewDropTable().TableExpr("?", bun.Ident(vs.tableName)).IfExists().Exec(context.Background())
				_, _ = db.NewDelete().Model((*CollectionSchema)(nil)).Where("name = ?", name).Exec(context.Background())
			})
			return vs
		},
	}

	suite.RunAllTests(t)
}

func TestPostgresVectorStoreDimensionCheck(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	name := randomCollection()
	vs, err := NewVectorStore(ctx, db, name, 3)
	require.NoError(t, err)
	defer func() {
		_, _ = db.NewDropTable().TableExpr("?", bun.Ident(vs.tableName)).IfExists().Exec(ctx)
		_, _ = db.NewDelete().Model((*CollectionSchema)(nil)).Where("name = ?", name).Exec(ctx)
	}()

	_, err = NewVectorStore(ctx, db, name, 4)
	assert.ErrorIs(t, err, models.ErrInitialization)
	assert.ErrorIs(t, err, store.ErrEmbeddingMismatch)
}

func TestTableNameForCollection(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		want       string
		wantErr    bool
	}{
		{"default collection", "emotibot_memory", "memory_emotibot_memory", false},
		{"mixed case", "EmotiBot", "memory_emotibot", false},
		{"empty", "", "", true},
		{"quote", `x"; drop table y`, "", true},
		{"hyphen", "my-memory", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tableNameForCollection(tt.collection)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSupportsHNSW(t *testing.T) {
	tests := []struct {
		version string
		want    bool
		wantErr bool
	}{
		{"0.4.4", false, false},
		{"0.5.0", true, false},
		{"0.7.4", true, false},
		{"not-a-version", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := supportsHNSW(tt.version)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewVectorStoreValidation(t *testing.T) {
	_, err := NewVectorStore(context.Background(), nil, "x", 3)
	assert.ErrorIs(t, err, models.ErrInitialization)
}
