package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"manual-rag/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	bundb := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = bundb.Close() })
	return bundb, mock
}

func searchColumns() []string {
	return []string{"source_filename", "page_number", "chunk_type", "chunk_number", "sender", "subject", "content", "score"}
}

func TestCalculateNumLists(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{0, 10},
		{500, 10},         // floor applied
		{9_999, 10},       // still under the floor threshold
		{50_000, 50},      // count / 1000
		{1_000_000, 1000}, // boundary stays on the linear branch
		{2_000_000, 1414}, // sqrt branch
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateNumLists(tt.count), "count %d", tt.count)
	}
}

func TestIsConnError(t *testing.T) {
	assert.True(t, IsConnError(driver.ErrBadConn))
	assert.True(t, IsConnError(io.EOF))
	assert.True(t, IsConnError(syscall.ECONNRESET))
	assert.True(t, IsConnError(fmt.Errorf("query: %w", syscall.EPIPE)))
	assert.False(t, IsConnError(nil))
	assert.False(t, IsConnError(errors.New("syntax error at or near")))
}

func TestTopKOrdersAndLimits(t *testing.T) {
	bundb, mock := newMockDB(t)
	store := NewStoreWithDB(bundb, nil, 3)

	rows := sqlmock.NewRows(searchColumns()).
		AddRow("manual", 1, "text", 0, "", "", "closest chunk", 0.05).
		AddRow("manual", 2, "table", 7, "", "", "further chunk", 0.31)
	mock.ExpectQuery(`SELECT (.+) FROM "documents"`).WillReturnRows(rows)

	results, err := store.TopK(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "closest chunk", results[0].Content)
	assert.Equal(t, 1, results[0].PageNumber)
	assert.Equal(t, "further chunk", results[1].Content)
	assert.LessOrEqual(t, results[0].Score, results[1].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopKRetriesOnceOnConnectionLoss(t *testing.T) {
	bundb1, mock1 := newMockDB(t)
	bundb2, mock2 := newMockDB(t)

	mock1.ExpectQuery(`SELECT (.+) FROM "documents"`).WillReturnError(syscall.ECONNRESET)
	mock2.ExpectQuery(`SELECT (.+) FROM "documents"`).WillReturnRows(
		sqlmock.NewRows(searchColumns()).
			AddRow("manual", 4, "text", 2, "", "", "recovered", 0.12))

	store := NewStoreWithDB(bundb1, func() (*bun.DB, error) { return bundb2, nil }, 3)

	results, err := store.TopK(context.Background(), []float32{0, 1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "recovered", results[0].Content)
	assert.NoError(t, mock1.ExpectationsWereMet())
	assert.NoError(t, mock2.ExpectationsWereMet())
}

func TestTopKSecondFailurePropagates(t *testing.T) {
	bundb1, mock1 := newMockDB(t)
	bundb2, mock2 := newMockDB(t)

	mock1.ExpectQuery(`SELECT (.+) FROM "documents"`).WillReturnError(syscall.ECONNRESET)
	mock2.ExpectQuery(`SELECT (.+) FROM "documents"`).WillReturnError(syscall.ECONNRESET)

	store := NewStoreWithDB(bundb1, func() (*bun.DB, error) { return bundb2, nil }, 3)

	_, err := store.TopK(context.Background(), []float32{0, 1, 0}, 3)
	assert.Error(t, err)
}

func TestTopKQueryErrorNotRetried(t *testing.T) {
	bundb, mock := newMockDB(t)
	store := NewStoreWithDB(bundb, func() (*bun.DB, error) {
		t.Fatal("reconnect must not be called for non-connection errors")
		return nil, nil
	}, 3)

	mock.ExpectQuery(`SELECT (.+) FROM "documents"`).WillReturnError(errors.New("malformed query"))

	_, err := store.TopK(context.Background(), []float32{1}, 3)
	assert.ErrorContains(t, err, "malformed query")
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	bundb, _ := newMockDB(t)
	store := NewStoreWithDB(bundb, nil, 3)

	err := store.Upsert(context.Background(), []models.EmbeddedRecord{
		{Chunk: models.Chunk{Content: "x"}, Embedding: []float32{1, 2}},
	})
	assert.ErrorContains(t, err, "length 2")
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	bundb, mock := newMockDB(t)
	store := NewStoreWithDB(bundb, nil, 3)
	require.NoError(t, store.Upsert(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnchangedByTopK(t *testing.T) {
	bundb, mock := newMockDB(t)
	store := NewStoreWithDB(bundb, nil, 3)

	countRows := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"count"}).AddRow(5) }
	mock.ExpectQuery(`SELECT count`).WillReturnRows(countRows())
	mock.ExpectQuery(`SELECT (.+) FROM "documents"`).WillReturnRows(sqlmock.NewRows(searchColumns()))
	mock.ExpectQuery(`SELECT count`).WillReturnRows(countRows())

	ctx := context.Background()
	before, err := store.Count(ctx)
	require.NoError(t, err)
	_, err = store.TopK(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	after, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
