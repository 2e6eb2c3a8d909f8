// Package store defines the contract both vector store backends satisfy.
package store

import (
	"context"

	"manual-rag/internal/models"
)

// VectorStore persists embedded records and answers nearest-neighbor
// queries. Upsert writes all records in one call; a partial write must
// surface as an error. TopK returns at most k records ordered by ascending
// cosine distance to the query embedding, vectors excluded.
type VectorStore interface {
	Upsert(ctx context.Context, records []models.EmbeddedRecord) error
	TopK(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
}
