package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/emotibot/emotibot/pkg/store"
)

// CollectionSchema records each collection and the width of its embedding column.
type CollectionSchema struct {
	bun.BaseModel `bun:"table:memory_collection,alias:mc" yaml:"-"`

	Name       string    `bun:",pk"                                                         yaml:"name"`
	TableName  string    `bun:",unique,notnull"                                             yaml:"table_name"`
	Dimensions int       `bun:",notnull"                                                    yaml:"dimensions"`
	IsIndexed  bool      `bun:",notnull,default:false"                                      yaml:"is_indexed"`
	CreatedAt  time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"created_at,omitempty"`
	UpdatedAt  time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"updated_at,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*CollectionSchema)(nil)

func (s *CollectionSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

// RecordSchemaTemplate is the layout of a collection table. The embedding column is
// added when the table is created so that it carries the collection's width.
type RecordSchemaTemplate struct {
	bun.BaseModel `bun:"table:memory_record,alias:r"`

	Seq       int64                  `bun:",pk,autoincrement"`
	RecordID  string                 `bun:",unique,notnull"`
	Text      string                 `bun:",notnull"`
	Kind      string                 `bun:",notnull"`
	Metadata  map[string]interface{} `bun:"type:jsonb,nullzero"`
	CreatedAt time.Time              `bun:"type:timestamptz,notnull,default:current_timestamp"`
}

// tableNameForCollection maps a collection name to its table name.
func tableNameForCollection(name string) (string, error) {
	if err := store.ValidateCollectionName(name); err != nil {
		return "", err
	}
	return "memory_" + strings.ToLower(name), nil
}

// enablePgVectorExtension creates the pgvector extension if it does not exist and updates it if it is out of date.
func enablePgVectorExtension(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("error creating pgvector extension: %w", err)
	}

	// no-op if the extension is already up to date
	_, err = db.ExecContext(ctx, "ALTER EXTENSION vector UPDATE")
	if err != nil {
		return fmt.Errorf("error updating pgvector extension: %w", err)
	}

	return nil
}

// createSchema creates the collection registry table if it does not exist.
func createSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*CollectionSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating collection table: %w", err)
	}
	return nil
}

// createRecordTable creates a collection table with an embedding column of the given
// width. An existing table is left as is.
func createRecordTable(ctx context.Context, db bun.IDB, tableName string, dimensions int) error {
	_, err := db.NewCreateTable().
		Model((*RecordSchemaTemplate)(nil)).
		ModelTableExpr("?", bun.Ident(tableName)).
		ColumnExpr("embedding vector(?) NOT NULL", dimensions).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating record table: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*RecordSchemaTemplate)(nil)).
		ModelTableExpr("?", bun.Ident(tableName)).
		Index(tableName + "_metadata_idx").
		IfNotExists().
		Using("gin").
		Column("metadata").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating metadata index: %w", err)
	}

	return nil
}

// createHNSWIndex creates an HNSW index on the given table and column if it does not exist.
// The index is created with the default M and efConstruction values. Only vector_cosine_ops is supported.
func createHNSWIndex(ctx context.Context, db *bun.DB, table, column string) error {
	const (
		m              = 16
		efConstruction = 64
	)

	idx := table + "_" + column + "_hnsw_idx"

	log.Infof("creating hnsw index on %s.%s if it does not exist", table, column)

	_, err := db.ExecContext(
		ctx,
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS ? ON ? USING hnsw (? vector_cosine_ops) WITH (M = ?, ef_construction = ?);",
		bun.Safe(idx),
		bun.Ident(table),
		bun.Ident(column),
		m,
		efConstruction,
	)
	if err != nil {
		return err
	}

	log.Infof("created hnsw index successfully on %s.%s if it did not exist", table, column)

	return nil
}

// getEmbeddingColumnWidth returns the width of the embedding column in the provided table.
func getEmbeddingColumnWidth(ctx context.Context, tableName string, db bun.IDB) (int, error) {
	var width int
	err := db.NewSelect().
		Table("pg_attribute").
		ColumnExpr("atttypmod"). // vector width is stored in atttypmod
		Where("attrelid = ?::regclass", tableName).
		Where("attname = 'embedding'").
		Scan(ctx, &width)
	if err != nil {
		return 0, fmt.Errorf("error getting embedding column width: %w", err)
	}
	return width, nil
}

// NewPostgresConn creates a new bun.DB connection to a postgres database using the provided DSN
// and enables the pgvector extension. The connection is pooled based on the number of PROCs available.
func NewPostgresConn(dsn string) (*bun.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	maxOpenConns := 4 * runtime.GOMAXPROCS(0)

	// WithReadTimeout is long to avoid timeouts when creating indexes.
	sqldb := sql.OpenDB(
		pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
			pgdriver.WithReadTimeout(10*time.Minute),
		),
	)
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetMaxIdleConns(maxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())

	if err := enablePgVectorExtension(ctx, db); err != nil {
		log.Error("error enabling pgvector extension: ", err)
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// isHNSWAvailable checks if the vector extension version is 0.5.0+.
func isHNSWAvailable(ctx context.Context, db *bun.DB) (bool, error) {
	var version string
	err := db.NewSelect().
		Column("extversion").
		TableExpr("pg_extension").
		Where("extname = 'vector'").
		Scan(ctx, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("vector extension not installed")
			return false, nil
		}
		return false, fmt.Errorf("error checking vector extension version: %w", err)
	}

	return supportsHNSW(version)
}

func supportsHNSW(version string) (bool, error) {
	const minVersion = "0.5.0"
	requiredVersion, err := semver.NewVersion(minVersion)
	if err != nil {
		return false, fmt.Errorf("error parsing required vector extension version: %w", err)
	}

	thisVersion, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("error parsing vector extension version: %w", err)
	}

	if requiredVersion.GreaterThan(thisVersion) {
		log.Infof("vector extension version is < %s. hnsw indexing not available", minVersion)
		return false, nil
	}

	log.Infof("vector extension version is >= %s. hnsw indexing available", minVersion)

	return true, nil
}
