package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/insuright/policy-rag/internal/config"
	"github.com/insuright/policy-rag/internal/core/ports"
	"github.com/insuright/policy-rag/internal/core/usecase"
	"github.com/insuright/policy-rag/internal/infrastructure/chunking"
	"github.com/insuright/policy-rag/internal/infrastructure/extractor"
	"github.com/insuright/policy-rag/internal/infrastructure/index/postgres"
	"github.com/insuright/policy-rag/internal/infrastructure/llm/ollama"
	"github.com/insuright/policy-rag/internal/infrastructure/policymeta"
	"github.com/insuright/policy-rag/internal/infrastructure/queue/nats"
	"github.com/insuright/policy-rag/internal/infrastructure/resilience"
	"github.com/insuright/policy-rag/internal/infrastructure/storage/localfs"
	"github.com/insuright/policy-rag/internal/infrastructure/vector/qdrant"
	"github.com/insuright/policy-rag/internal/observability/logging"
)

// App wires the pipeline components behind their ports. Both binaries
// build the same graph; the api uses the query/ingest side, the worker
// the processing side.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.PolicyQueryService
	Docs      ports.DocumentReader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	executor := resilience.NewExecutor(resilience.DefaultPolicy(), logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	lexical := postgres.NewLexicalIndex(db, executor)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	verifier := ollama.NewVerifier(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.New(storage)
	metadata := policymeta.New()

	var markers []string
	if cfg.IntentLexiconPath != "" {
		markers, err = config.LoadIntentLexicon(cfg.IntentLexiconPath)
		if err != nil {
			queue.Close()
			_ = db.Close()
			return nil, fmt.Errorf("load intent lexicon: %w", err)
		}
	}
	intents := usecase.NewIntentDetector(markers)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, textExtractor, metadata, chunker, embedder, lexical, vectorDB)
	queryUC := usecase.NewQueryUseCase(embedder, lexical, vectorDB, generator, verifier, intents, pipelineSettings(cfg), logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue: queue,
		Repo:  repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,
		Docs:      usecase.NewDocumentReadUseCase(repo),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func pipelineSettings(cfg config.Config) usecase.Settings {
	return usecase.Settings{
		LexicalWeight:    cfg.LexicalWeight,
		SemanticWeight:   cfg.SemanticWeight,
		HybridCandidates: cfg.HybridCandidates,
		TopK:             cfg.TopK,
		MaxK:             cfg.MaxK,

		PersonalBoost: cfg.PersonalBoost,
		MinRelevance:  cfg.MinRelevanceScore,

		ContextCharBudget: cfg.ContextCharBudget,

		ConfidenceHigh:     cfg.ConfidenceHighThreshold,
		ConfidenceLow:      cfg.ConfidenceLowThreshold,
		RetrievalWeight:    cfg.RetrievalWeight,
		FaithfulnessWeight: cfg.FaithfulnessWeight,
		CitationWeight:     cfg.CitationWeight,
		ClaimPenalty:       cfg.ClaimPenalty,
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
