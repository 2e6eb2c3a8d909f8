package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"manual-rag/internal/config"
	"manual-rag/internal/helper"
	"manual-rag/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

const (
	compress = false

	// writeBatchSize matches the batch size the store service recommends
	// for bulk imports.
	writeBatchSize = 25

	// progressEvery controls how often bulk imports log their progress.
	progressEvery = 100
)

// Manager owns the chromem database. Each tenant (one manual, one corpus)
// maps to its own collection, so searches never cross tenants.
type Manager struct {
	db            *chromem.DB
	dbPath        string
	encryptionKey string
}

// NewManager opens (or creates) the vector database. With InMemory set the
// data lives only for the process lifetime unless exported.
func NewManager(cfg *config.ChromemConfig) (*Manager, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}
	return &Manager{
		db:            db,
		dbPath:        cfg.Path,
		encryptionKey: cfg.EncryptionKey,
	}, nil
}

// Tenant returns the store view for one tenant, creating its collection if
// needed.
func (m *Manager) Tenant(name string) (*TenantStore, error) {
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	c, err := m.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return &TenantStore{collection: c, name: name}, nil
}

// DeleteTenant removes a tenant's collection and everything in it.
func (m *Manager) DeleteTenant(name string) error {
	if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// ListTenants returns the known tenant names, sorted.
func (m *Manager) ListTenants() []string {
	collections := m.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Export writes a tenant's collection to an encrypted file under the
// database path.
func (m *Manager) Export(ctx context.Context, tenant string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	filePath := filepath.Join(m.dbPath, tenant+".chromem")
	log.Debug().Str("tenant", tenant).Str("file", filePath).Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, compress, m.encryptionKey, tenant); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads a previously exported tenant collection.
func (m *Manager) Import(ctx context.Context, tenant string) error {
	filePath := filepath.Join(m.dbPath, tenant+".chromem")
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, tenant); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return nil
}

// TenantStore is the vector store bound to a single tenant's collection.
type TenantStore struct {
	collection *chromem.Collection
	name       string
}

// Upsert writes records in batches of 25, logging progress periodically.
// Record IDs derive from filename and chunk number, so re-ingesting the
// same file overwrites rather than duplicates.
func (t *TenantStore) Upsert(ctx context.Context, records []models.EmbeddedRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Embedding)
	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		if len(rec.Embedding) != dim {
			return fmt.Errorf("record %d has embedding of length %d, want %d", i, len(rec.Embedding), dim)
		}
		id := fmt.Sprintf("%s-%d", rec.SourceFilename, rec.ChunkNumber)
		if rec.SourceFilename == "" {
			generated, err := helper.GenerateUUID()
			if err != nil {
				return err
			}
			id = generated
		}
		docs[i] = chromem.Document{
			ID:        id,
			Content:   rec.Content,
			Metadata:  recordMetadata(rec),
			Embedding: rec.Embedding,
		}
	}

	for start := 0; start < len(docs); start += writeBatchSize {
		if start%progressEvery == 0 {
			log.Info().Msgf("import %d / %d", start, len(docs))
		}
		end := min(start+writeBatchSize, len(docs))
		if err := t.collection.AddDocuments(ctx, docs[start:end], 1); err != nil {
			return fmt.Errorf("failed to add documents (%d written): %w", start, err)
		}
	}
	log.Info().Str("tenant", t.name).Int("records", len(docs)).Msg("Data added")
	return nil
}

// TopK runs a similarity search within this tenant. k is clamped to the
// number of stored records; results come back most similar first.
func (t *TenantStore) TopK(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	count := t.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	res, err := t.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	results := make([]models.SearchResult, len(res))
	for i, r := range res {
		results[i] = models.SearchResult{
			Content:        r.Content,
			PageNumber:     atoiOrZero(r.Metadata["page_number"]),
			ChunkType:      r.Metadata["chunk_type"],
			ChunkNumber:    atoiOrZero(r.Metadata["chunk_number"]),
			SourceFilename: r.Metadata["filename"],
			Sender:         r.Metadata["sender"],
			Subject:        r.Metadata["subject"],
			Score:          float64(r.Similarity),
		}
	}
	return results, nil
}

// Count reports the number of records in this tenant's collection.
func (t *TenantStore) Count(ctx context.Context) (int, error) {
	return t.collection.Count(), nil
}

func recordMetadata(rec models.EmbeddedRecord) map[string]string {
	md := map[string]string{
		"filename":     rec.SourceFilename,
		"page_number":  strconv.Itoa(rec.PageNumber),
		"chunk_type":   rec.ChunkType,
		"chunk_number": strconv.Itoa(rec.ChunkNumber),
	}
	if rec.Sender != "" {
		md["sender"] = rec.Sender
	}
	if rec.Subject != "" {
		md["subject"] = rec.Subject
	}
	return md
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
