package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"manual-rag/internal/chromemdb"
	"manual-rag/internal/config"
	"manual-rag/internal/db"
	"manual-rag/internal/embedding"
	"manual-rag/internal/helper"
	"manual-rag/internal/ingest"
	"manual-rag/internal/llmservice"
	"manual-rag/internal/parser"
	"manual-rag/internal/rag"
	"manual-rag/internal/store"
)

const (
	configFilePath = "./configs/config.yaml"

	// external calls get a generous but finite deadline
	requestTimeout = 120 * time.Second
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	forumPath := flag.String("forum", "", "Path to a forum archive export to ingest")
	query := flag.String("query", "", "Question to answer from the stored corpus")
	backend := flag.String("backend", "pg", "Vector store backend: pg or chromem")
	tenant := flag.String("tenant", "", "Tenant (manual) name, chromem backend only")
	topK := flag.Int("k", 0, "Top-k retrieved chunks (0 = config value)")
	buildIndex := flag.Bool("build-index", false, "Build the ANN index after ingestion (pg backend)")
	listTenants := flag.Bool("list-tenants", false, "List chromem tenants and exit")
	exportTenant := flag.Bool("export", false, "Export the tenant's collection to an encrypted file")
	importTenant := flag.Bool("import", false, "Import the tenant's collection from an encrypted file")
	deleteTenant := flag.Bool("delete-tenant", false, "Delete the tenant's collection")
	dryRun := flag.Bool("dry-run", false, "Parse and print, do not embed or store")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *topK > 0 {
		cfg.RAG.TopK = *topK
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch {
	case *listTenants:
		runListTenants(cfg)
	case *exportTenant || *importTenant || *deleteTenant:
		runTenantAdmin(ctx, cfg, *tenant, *exportTenant, *importTenant, *deleteTenant)
	case *dryRun && *filePath != "":
		runDryRun(*filePath)
	case *dryRun && *forumPath != "":
		runForumDryRun(*forumPath, cfg.RAG.ChunkSize)
	case *filePath != "" || *forumPath != "":
		runIngest(ctx, cfg, *backend, *tenant, *filePath, *forumPath, *buildIndex)
	case *query != "":
		runQuery(ctx, cfg, *backend, *tenant, *query)
	case *buildIndex:
		runBuildIndex(ctx, cfg)
	default:
		log.Fatal().Msg("Provide a document with -file, a forum archive with -forum, or a question with -query")
	}
}

// openStore picks the configured backend. The chromem backend needs a
// tenant, one per manual; the pg backend holds a single corpus.
func openStore(cfg *config.Config, backend, tenant string) (store.VectorStore, func(), error) {
	switch backend {
	case "pg":
		pgStore, err := db.NewStore(&cfg.Database, cfg.RAG.VectorSize)
		if err != nil {
			return nil, nil, err
		}
		return pgStore, func() { _ = pgStore.Close() }, nil
	case "chromem":
		manager, err := chromemdb.NewManager(&cfg.Chromem)
		if err != nil {
			return nil, nil, err
		}
		tenantStore, err := manager.Tenant(tenant)
		if err != nil {
			return nil, nil, err
		}
		return tenantStore, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend: %s", backend)
	}
}

func runIngest(ctx context.Context, cfg *config.Config, backend, tenant, filePath, forumPath string, buildIndex bool) {
	vectorStore, closeStore, err := openStore(cfg, backend, tenant)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer closeStore()

	if pgStore, ok := vectorStore.(*db.Store); ok {
		if err := pgStore.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
	}

	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	ingestor := ingest.New(embedder, vectorStore, cfg.RAG.ChunkSize)
	var count int
	if filePath != "" {
		count, err = ingestor.IngestFile(ctx, filePath)
	} else {
		count, err = ingestor.IngestForumArchive(ctx, forumPath)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	log.Info().Int("records", count).Msg("Stored records")

	if buildIndex {
		if pgStore, ok := vectorStore.(*db.Store); ok {
			if err := pgStore.CreateVectorIndex(ctx); err != nil {
				log.Fatal().Err(err).Msg("Error building vector index")
			}
		}
	}
}

func runQuery(ctx context.Context, cfg *config.Config, backend, tenant, query string) {
	vectorStore, closeStore, err := openStore(cfg, backend, tenant)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer closeStore()

	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	completer, err := llmservice.NewClient(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing completion client")
	}

	pipeline := rag.New(embedder, vectorStore, completer, cfg.RAG.TopK, cfg.RAG.DomainContext)
	response, err := pipeline.Query(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	fmt.Printf("Query:\n%s\n\n", response.Query)
	fmt.Printf("Sources:\n%s\n\n", response.Source)
	fmt.Printf("Assistant:\n%s\n\n", response.Content)
}

func runBuildIndex(ctx context.Context, cfg *config.Config) {
	pgStore, err := db.NewStore(&cfg.Database, cfg.RAG.VectorSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	defer pgStore.Close()
	if err := pgStore.CreateVectorIndex(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error building vector index")
	}
}

func runTenantAdmin(ctx context.Context, cfg *config.Config, tenant string, export, restore, drop bool) {
	if tenant == "" {
		log.Fatal().Msg("Tenant administration needs -tenant")
	}
	manager, err := chromemdb.NewManager(&cfg.Chromem)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector database")
	}
	switch {
	case export:
		err = manager.Export(ctx, tenant)
	case restore:
		err = manager.Import(ctx, tenant)
	case drop:
		err = manager.DeleteTenant(tenant)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error administering tenant")
	}
	log.Info().Str("tenant", tenant).Msg("Done")
}

func runListTenants(cfg *config.Config) {
	manager, err := chromemdb.NewManager(&cfg.Chromem)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector database")
	}
	for _, name := range manager.ListTenants() {
		fmt.Println(name)
	}
}

func runDryRun(filePath string) {
	pages, err := parser.Extract(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	helper.PrettyPrint(pages)

	tables, err := parser.ExtractTables(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error extracting tables")
	}
	if len(tables) > 0 {
		helper.PrettyPrint(tables)
	}
}

func runForumDryRun(filePath string, chunkSize int) {
	posts := parser.ParseForumArchive(filePath, chunkSize)
	helper.PrettyPrint(posts)
}
