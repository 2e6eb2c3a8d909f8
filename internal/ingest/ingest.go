// Package ingest turns documents into embedded records and writes them to
// a vector store: extract, chunk, embed, upsert. Extraction problems on
// individual pages are logged and skipped; ingestion is best-effort.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"manual-rag/internal/chunker"
	"manual-rag/internal/embedding"
	"manual-rag/internal/models"
	"manual-rag/internal/parser"
	"manual-rag/internal/store"

	"github.com/rs/zerolog/log"
)

type Ingestor struct {
	embedder  embedding.Embedder
	store     store.VectorStore
	chunkSize int
}

func New(embedder embedding.Embedder, vectorStore store.VectorStore, chunkSize int) *Ingestor {
	if chunkSize <= 0 {
		chunkSize = models.DefaultChunkSize
	}
	return &Ingestor{embedder: embedder, store: vectorStore, chunkSize: chunkSize}
}

// IngestFile extracts a document's text and tables, embeds every chunk and
// writes the records to the store. Returns how many records were written.
func (in *Ingestor) IngestFile(ctx context.Context, filePath string) (int, error) {
	filename := baseName(filePath)

	pages, err := parser.Extract(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	textChunks := chunker.SplitPages(pages, in.chunkSize, filename)

	tables, err := parser.ExtractTables(filePath)
	if err != nil {
		// tables are an extra; text alone is still worth storing
		log.Warn().Err(err).Str("file", filePath).Msg("table extraction failed")
	}
	tableChunks := parser.FlattenTables(tables, filename)

	chunks := append(textChunks, tableChunks...)
	return in.IngestChunks(ctx, chunks)
}

// IngestForumArchive parses a plain-text forum export and stores each
// post's chunks with sender and subject metadata.
func (in *Ingestor) IngestForumArchive(ctx context.Context, filePath string) (int, error) {
	posts := parser.ParseForumArchive(filePath, in.chunkSize)
	if len(posts) == 0 {
		return 0, fmt.Errorf("no posts found in %s", filePath)
	}
	chunks := parser.ForumPostsToChunks(posts, baseName(filePath))
	return in.IngestChunks(ctx, chunks)
}

// IngestChunks embeds chunks one at a time and bulk-writes the records.
// Chunk numbers are assigned here, document-wide and in order.
func (in *Ingestor) IngestChunks(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return 0, nil
	}

	records := make([]models.EmbeddedRecord, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := in.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		chunk.ChunkNumber = i
		records = append(records, models.EmbeddedRecord{Chunk: chunk, Embedding: vector})
	}

	if err := in.store.Upsert(ctx, records); err != nil {
		return 0, err
	}
	log.Info().Int("records", len(records)).Msg("Ingestion complete")
	return len(records), nil
}

func baseName(filePath string) string {
	name := filepath.Base(filePath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
