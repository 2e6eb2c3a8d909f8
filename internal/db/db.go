package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"syscall"

	"manual-rag/internal/config"
	"manual-rag/internal/models"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// Document is one embedded chunk persisted in Postgres. The embedding
// column uses the pgvector extension; search orders by the cosine
// distance operator.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID             int64           `bun:"id,pk,autoincrement"`
	SourceFilename string          `bun:"source_filename"`
	PageNumber     int             `bun:"page_number"`
	ChunkType      string          `bun:"chunk_type"`
	ChunkNumber    int             `bun:"chunk_number"`
	Sender         string          `bun:"sender"`
	Subject        string          `bun:"subject"`
	Content        string          `bun:"content,notnull"`
	Embedding      pgvector.Vector `bun:"embedding,notnull,type:vector(1536)"`
}

// Store is the Postgres + pgvector backend. On a transient connection
// error during a query it reconnects once and retries once; a second
// failure propagates.
type Store struct {
	db         *bun.DB
	connect    func() (*bun.DB, error)
	vectorSize int
}

// NewStore connects to Postgres and returns the store. The connection
// recipe is kept so a dropped connection can be re-established later.
func NewStore(cfg *config.DatabaseConfig, vectorSize int) (*Store, error) {
	if vectorSize <= 0 {
		vectorSize = models.EmbeddingDimensions
	}
	connect := func() (*bun.DB, error) {
		dsn := cfg.URL
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
			pgdriver.WithPassword(cfg.Password),
		))
		bundb := bun.NewDB(sqldb, pgdialect.New())
		if cfg.Debug {
			bundb.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
		}
		return bundb, nil
	}
	bundb, err := connect()
	if err != nil {
		return nil, err
	}
	return &Store{db: bundb, connect: connect, vectorSize: vectorSize}, nil
}

// NewStoreWithDB wires an existing bun.DB, mainly for tests.
func NewStoreWithDB(bundb *bun.DB, connect func() (*bun.DB, error), vectorSize int) *Store {
	if vectorSize <= 0 {
		vectorSize = models.EmbeddingDimensions
	}
	return &Store{db: bundb, connect: connect, vectorSize: vectorSize}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init enables the vector extension and creates the documents table.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector extension: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// Upsert bulk-writes records in a single insert statement.
func (s *Store) Upsert(ctx context.Context, records []models.EmbeddedRecord) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]Document, len(records))
	for i, rec := range records {
		if len(rec.Embedding) != s.vectorSize {
			return fmt.Errorf("record %d has embedding of length %d, want %d", i, len(rec.Embedding), s.vectorSize)
		}
		docs[i] = Document{
			SourceFilename: rec.SourceFilename,
			PageNumber:     rec.PageNumber,
			ChunkType:      rec.ChunkType,
			ChunkNumber:    rec.ChunkNumber,
			Sender:         rec.Sender,
			Subject:        rec.Subject,
			Content:        rec.Content,
			Embedding:      pgvector.NewVector(rec.Embedding),
		}
	}
	if _, err := s.db.NewInsert().Model(&docs).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	return nil
}

type searchRow struct {
	SourceFilename string  `bun:"source_filename"`
	PageNumber     int     `bun:"page_number"`
	ChunkType      string  `bun:"chunk_type"`
	ChunkNumber    int     `bun:"chunk_number"`
	Sender         string  `bun:"sender"`
	Subject        string  `bun:"subject"`
	Content        string  `bun:"content"`
	Score          float64 `bun:"score"`
}

// TopK returns the k nearest records by cosine distance, closest first.
// Vectors themselves are not part of the result payload.
func (s *Store) TopK(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	results, err := s.topK(ctx, embedding, k)
	if err != nil && IsConnError(err) {
		log.Warn().Err(err).Msg("Connection lost. Reconnecting...")
		if rerr := s.reconnect(); rerr != nil {
			return nil, fmt.Errorf("reconnect failed: %w", rerr)
		}
		return s.topK(ctx, embedding, k)
	}
	return results, err
}

func (s *Store) topK(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	vec := pgvector.NewVector(embedding)
	var rows []searchRow
	err := s.db.NewSelect().
		Model((*Document)(nil)).
		ColumnExpr("source_filename, page_number, chunk_type, chunk_number, sender, subject, content").
		ColumnExpr("embedding <=> ? AS score", vec).
		OrderExpr("embedding <=> ?", vec).
		Limit(k).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	results := make([]models.SearchResult, len(rows))
	for i, row := range rows {
		results[i] = models.SearchResult{
			Content:        row.Content,
			PageNumber:     row.PageNumber,
			ChunkType:      row.ChunkType,
			ChunkNumber:    row.ChunkNumber,
			SourceFilename: row.SourceFilename,
			Sender:         row.Sender,
			Subject:        row.Subject,
			Score:          row.Score,
		}
	}
	return results, nil
}

// Count reports how many records the table currently holds.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Document)(nil)).Count(ctx)
}

func (s *Store) reconnect() error {
	bundb, err := s.connect()
	if err != nil {
		return err
	}
	_ = s.db.Close()
	s.db = bundb
	return nil
}

// CalculateNumLists sizes the IVFFlat index from the record count:
// records/1000 with a floor of 10, switching to sqrt(records) past one
// million. The thresholds are kept as-is for compatibility with corpora
// indexed by earlier versions.
func CalculateNumLists(recordCount int) int {
	if recordCount > 1_000_000 {
		return int(math.Sqrt(float64(recordCount)))
	}
	lists := recordCount / 1000
	if lists < 10 {
		lists = 10
	}
	return lists
}

// CreateVectorIndex builds the approximate-nearest-neighbor index over the
// embedding column. One-time administrative step, run after ingestion; it
// is not refreshed automatically when the table grows.
func (s *Store) CreateVectorIndex(ctx context.Context) error {
	count, err := s.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	lists := CalculateNumLists(count)
	log.Info().Int("records", count).Int("lists", lists).Msg("Creating ivfflat index")
	stmt := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)",
		lists,
	)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}

// IsConnError reports whether err looks like a dropped or refused
// connection rather than a query failure.
func IsConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
