package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/knowledge-retriever/internal/config"
	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
	"github.com/kirillkom/knowledge-retriever/internal/core/ports"
	"github.com/kirillkom/knowledge-retriever/internal/core/usecase"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/cache"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/chunking"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/corpus/localfs"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/lexical"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/queue/nats"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/ratelimit"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/rerank"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/resilience"
	"github.com/kirillkom/knowledge-retriever/internal/infrastructure/vector/qdrant"
)

// App wires the retrieval API process: corpus store, lexical index, vector
// search, the retry engine and its gate/cache/limiter collaborators.
type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	RetrieveUC *usecase.RetrieveUseCase
	ReindexUC  ports.CorpusIndexer
	Limiter    ports.RateLimiter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	corpusRepo := postgres.NewCorpusRepository(db)
	if err := corpusRepo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel).WithExecutor(executor)
	generator := ollama.NewGenerator(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)
	comparator := ollama.NewComparator(embedder)

	qdrantClient := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	vectorRetriever := qdrant.NewRetriever(qdrantClient, embedder)

	lexicalIndex := lexical.NewIndex()
	reindexUC := usecase.NewReindexUseCase(corpusRepo, lexicalIndex)
	if err := reindexUC.Reindex(ctx); err != nil {
		return nil, fmt.Errorf("initial lexical index build: %w", err)
	}

	reranker, err := rerank.New(cfg.RerankerKind, generator, cfg.RerankerURL, cfg.LLMTimeout)
	if err != nil {
		return nil, fmt.Errorf("init reranker: %w", err)
	}

	responseCache, err := cache.NewResponseCache(cfg.CacheMaxSize, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("init response cache: %w", err)
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimitCapacity, cfg.RateLimitRefillRate)

	expander := usecase.NewQueryExpander(generator, cfg.MultiQueryCount, cfg.LLMTimeout)
	filter := usecase.NewSimilarityFilter(comparator, cfg.SimilarityFilterThreshold)
	evaluator := usecase.NewQualityEvaluator(usecase.EvaluatorThresholds{
		MinDocCount:           cfg.MinDocCount,
		MinKeywordMatchRatio:  cfg.MinKeywordMatchRatio,
		MinAvgSimilarityScore: cfg.MinAvgSimilarityScore,
	})
	strategist, err := usecase.NewFeedbackStrategist()
	if err != nil {
		return nil, fmt.Errorf("init feedback strategist: %w", err)
	}
	budget := usecase.NewDocumentBudgetCalculator(cfg.MaxRetrievalDocs)

	retrieveUC := usecase.NewRetrieveUseCase(
		lexicalIndex,
		vectorRetriever,
		expander,
		filter,
		evaluator,
		strategist,
		budget,
		reranker,
		responseCache,
		domain.SearchStrategy{
			K:                cfg.RetrievalK,
			KCommon:          cfg.RetrievalKCommon,
			UseHybrid:        cfg.RetrievalMode == "hybrid",
			MMRLambda:        cfg.MMRLambda,
			FetchKMultiplier: cfg.FetchKMultiplier,
		},
		usecase.RetrieveParams{
			RRFK:          cfg.RRFKConstant,
			MaxRetryCount: cfg.MaxRetryCount,
			MaxDocs:       cfg.MaxRetrievalDocs,
			RerankTopN:    cfg.RerankTopN,
			CacheTTL:      cfg.CacheTTL,
		},
	)

	return &App{
		Config:     cfg,
		Queue:      queue,
		RetrieveUC: retrieveUC,
		ReindexUC:  reindexUC,
		Limiter:    limiter,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// WorkerApp wires the corpus ingest process.
type WorkerApp struct {
	Config config.Config

	Queue    ports.MessageQueue
	IngestUC *usecase.IngestCorpusUseCase

	closeFn func()
}

func NewWorker(ctx context.Context, cfg config.Config) (*WorkerApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	corpusRepo := postgres.NewCorpusRepository(db)
	if err := corpusRepo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	loader, err := localfs.New(cfg.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("init corpus loader: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel).WithExecutor(executor)
	embedder := ollama.NewEmbedder(ollamaClient)

	qdrantClient := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	vectorIndexer := qdrant.NewIndexer(qdrantClient)

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	ingestUC := usecase.NewIngestCorpusUseCase(loader, chunker, embedder, vectorIndexer, corpusRepo, queue)

	return &WorkerApp{
		Config:   cfg,
		Queue:    queue,
		IngestUC: ingestUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *WorkerApp) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
