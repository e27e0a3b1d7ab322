// Package postgres provides a VectorStore backed by Postgres and pgvector. Each
// collection lives in its own table with a fixed width embedding column.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/emotibot/emotibot/internal"
	"github.com/emotibot/emotibot/pkg/models"
	"github.com/emotibot/emotibot/pkg/store"
)

var log = internal.GetLogger()

var _ models.VectorStore = &VectorStore{}

type recordRow struct {
	bun.BaseModel `bun:"table:memory_record,alias:r"`

	Seq       int64                  `bun:",pk,autoincrement"`
	RecordID  string                 `bun:",notnull"`
	Text      string                 `bun:",notnull"`
	Kind      string                 `bun:",notnull"`
	Metadata  map[string]interface{} `bun:"type:jsonb,nullzero"`
	CreatedAt time.Time              `bun:"type:timestamptz,notnull"`
	Embedding pgvector.Vector        `bun:"type:vector"`
}

func (r *recordRow) toRecord() models.MemoryRecord {
	return models.MemoryRecord{
		ID:        r.RecordID,
		Text:      r.Text,
		Vector:    r.Embedding.Slice(),
		Kind:      models.RecordKind(r.Kind),
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt,
	}
}

type queryRow struct {
	RecordID  string                 `bun:"record_id"`
	Text      string                 `bun:"text"`
	Kind      string                 `bun:"kind"`
	Metadata  map[string]interface{} `bun:"metadata,type:jsonb"`
	Distance  float64                `bun:"distance"`
	Embedding pgvector.Vector        `bun:"embedding"`
}

type VectorStore struct {
	store.BaseVectorStore[*bun.DB]
	tableName string
	useHNSW   bool
}

// NewVectorStore registers the collection, creating its table if needed, and checks that
// an existing collection has the requested width.
func NewVectorStore(
	ctx context.Context,
	db *bun.DB,
	collectionName string,
	dims int,
) (*VectorStore, error) {
	if db == nil {
		return nil, models.NewInitializationError("postgres store", store.NewStorageError("nil db received", nil))
	}
	if dims <= 0 {
		return nil, models.NewInitializationError("postgres store", store.NewStorageError("dimensions must be positive", nil))
	}
	tableName, err := tableNameForCollection(collectionName)
	if err != nil {
		return nil, models.NewInitializationError("postgres store", store.NewStorageError("bad collection name", err))
	}

	s := &VectorStore{
		BaseVectorStore: store.BaseVectorStore[*bun.DB]{
			Client:     db,
			Collection: collectionName,
			Dims:       dims,
		},
		tableName: tableName,
	}

	if err := s.OnStart(ctx); err != nil {
		return nil, models.NewInitializationError("postgres store", err)
	}
	return s, nil
}

func (s *VectorStore) OnStart(ctx context.Context) error {
	if err := createSchema(ctx, s.Client); err != nil {
		return store.NewStorageError("failed to create schema", err)
	}

	collection := &CollectionSchema{
		Name:       s.Collection,
		TableName:  s.tableName,
		Dimensions: s.Dims,
	}
	_, err := s.Client.NewInsert().
		Model(collection).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to register collection", err)
	}

	existing := new(CollectionSchema)
	err = s.Client.NewSelect().Model(existing).Where("name = ?", s.Collection).Scan(ctx)
	if err != nil {
		return store.NewStorageError("failed to read collection", err)
	}
	if existing.Dimensions != s.Dims {
		return store.NewEmbeddingMismatchError(existing.Dimensions, s.Dims)
	}

	if err := createRecordTable(ctx, s.Client, s.tableName, s.Dims); err != nil {
		return store.NewStorageError("failed to create collection table", err)
	}
	width, err := getEmbeddingColumnWidth(ctx, s.tableName, s.Client)
	if err != nil {
		return store.NewStorageError("failed to check collection table", err)
	}
	if width != s.Dims {
		return store.NewEmbeddingMismatchError(width, s.Dims)
	}

	s.useHNSW, err = isHNSWAvailable(ctx, s.Client)
	if err != nil {
		return store.NewStorageError("failed to check for hnsw support", err)
	}
	return s.ensureIndex(ctx)
}

func (s *VectorStore) ensureIndex(ctx context.Context) error {
	if !s.useHNSW {
		return nil
	}
	if err := createHNSWIndex(ctx, s.Client, s.tableName, "embedding"); err != nil {
		return store.NewStorageError("failed to create hnsw index", err)
	}
	_, err := s.Client.NewUpdate().
		Model(&CollectionSchema{Name: s.Collection, IsIndexed: true}).
		Column("is_indexed", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to update collection", err)
	}
	return nil
}

func (s *VectorStore) Upsert(ctx context.Context, records []models.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := store.ValidateRecords(records, s.Dims); err != nil {
		return err
	}

	rows := make([]recordRow, len(records))
	for i, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows[i] = recordRow{
			RecordID:  r.ID,
			Text:      r.Text,
			Kind:      string(r.Kind),
			Metadata:  r.Metadata,
			CreatedAt: createdAt,
			Embedding: pgvector.NewVector(r.Vector),
		}
	}

	tx, err := s.Client.BeginTx(ctx, nil)
	if err != nil {
		return store.NewStorageError("failed to begin transaction", err)
	}
	defer rollbackOnError(tx)

	_, err = tx.NewInsert().
		Model(&rows).
		ModelTableExpr("?", bun.Ident(s.tableName)).
		Exec(ctx)
	if err != nil {
		if pgErr, ok := err.(pgdriver.Error); ok && pgErr.IntegrityViolation() {
			return store.NewStorageError("record already exists", err)
		}
		return store.NewStorageError("failed to insert records", err)
	}

	if err := tx.Commit(); err != nil {
		return store.NewStorageError("failed to commit records", err)
	}

	log.Debugf("postgres store wrote %d records to %s", len(records), s.Collection)
	return nil
}

func (s *VectorStore) Query(
	ctx context.Context,
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

	query, err := s.buildQuery(vector, k, filter)
	if err != nil {
		return nil, err
	}

	var rows []queryRow
	if err := query.Scan(ctx, &rows); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, store.NewStorageError("failed to query collection", err)
	}

	results := make([]models.QueryResult, len(rows))
	for i, r := range rows {
		results[i] = models.QueryResult{
			ID:       r.RecordID,
			Text:     r.Text,
			Kind:     models.RecordKind(r.Kind),
			Metadata: r.Metadata,
			Distance: r.Distance,
			Vector:   r.Embedding.Slice(),
		}
	}
	return results, nil
}

// buildQuery selects the k nearest records by cosine distance. A metadata filter is
// applied with jsonb containment.
func (s *VectorStore) buildQuery(
	vector []float32,
	k int,
	filter models.MetadataFilter,
) (*bun.SelectQuery, error) {
	query := s.Client.NewSelect().
		TableExpr("? AS r", bun.Ident(s.tableName)).
		ColumnExpr("r.record_id, r.text, r.kind, r.metadata, r.embedding").
		ColumnExpr("(r.embedding <=> ?) AS distance", pgvector.NewVector(vector)).
		OrderExpr("distance ASC, r.record_id ASC").
		Limit(k)

	if len(filter) > 0 {
		f, err := json.Marshal(filter)
		if err != nil {
			return nil, store.NewStorageError("failed to marshal metadata filter", err)
		}
		query = query.Where("r.metadata @> ?::jsonb", string(f))
	}
	return query, nil
}

func (s *VectorStore) Get(ctx context.Context, limit int) ([]models.MemoryRecord, error) {
	var rows []recordRow
	query := s.Client.NewSelect().
		Model(&rows).
		ModelTableExpr("? AS r", bun.Ident(s.tableName)).
		Order("seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, store.NewStorageError("failed to read collection", err)
	}

	records := make([]models.MemoryRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].toRecord()
	}
	return records, nil
}

func (s *VectorStore) Count(ctx context.Context) (int, error) {
	count, err := s.Client.NewSelect().
		TableExpr("?", bun.Ident(s.tableName)).
		Count(ctx)
	if err != nil {
		return 0, store.NewStorageError("failed to count collection", err)
	}
	return count, nil
}

func (s *VectorStore) DropAndRecreate(ctx context.Context) error {
	tx, err := s.Client.BeginTx(ctx, nil)
	if err != nil {
		return store.NewStorageError("failed to begin transaction", err)
	}
	defer rollbackOnError(tx)

	_, err = tx.NewDropTable().
		Model((*RecordSchemaTemplate)(nil)).
		ModelTableExpr("?", bun.Ident(s.tableName)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to drop collection table", err)
	}

	if err := createRecordTable(ctx, tx, s.tableName, s.Dims); err != nil {
		return store.NewStorageError("failed to recreate collection table", err)
	}

	_, err = tx.NewUpdate().
		Model(&CollectionSchema{Name: s.Collection, IsIndexed: false}).
		Column("is_indexed", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to update collection", err)
	}

	if err := tx.Commit(); err != nil {
		return store.NewStorageError("failed to commit drop", err)
	}

	// concurrent index builds cannot run inside a transaction
	if err := s.ensureIndex(ctx); err != nil {
		return err
	}

	log.Infof("postgres store dropped and recreated collection %s", s.Collection)
	return nil
}

func (s *VectorStore) ConcurrentSafe() bool {
	return true
}

func (s *VectorStore) Close() error {
	return s.Client.Close()
}

func rollbackOnError(tx bun.Tx) {
	if rollBackErr := tx.Rollback(); rollBackErr != nil && !errors.Is(rollBackErr, sql.ErrTxDone) {
		log.Error("failed to rollback transaction", rollBackErr)
	}
}
