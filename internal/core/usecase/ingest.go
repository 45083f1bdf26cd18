package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
	"github.com/kirillkom/knowledge-retriever/internal/core/ports"
)

// IngestReport summarizes one corpus ingest run.
type IngestReport struct {
	Loaded   int
	Ingested int
	Failed   int
	Chunks   int
}

// IngestCorpusUseCase loads source documents, embeds their chunks into the
// vector index and persists each document into the corpus of record. A
// failure on one document skips it without aborting the run.
type IngestCorpusUseCase struct {
	loader   ports.CorpusLoader
	chunker  ports.Chunker
	embedder ports.Embedder
	vectorDB ports.VectorIndexer
	store    ports.CorpusStore
	queue    ports.MessageQueue
}

func NewIngestCorpusUseCase(
	loader ports.CorpusLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorIndexer,
	store ports.CorpusStore,
	queue ports.MessageQueue,
) *IngestCorpusUseCase {
	return &IngestCorpusUseCase{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		vectorDB: vectorDB,
		store:    store,
		queue:    queue,
	}
}

// Run executes a full ingest pass. When at least one document lands in the
// corpus a reindex event is published so API replicas rebuild their lexical
// index.
func (uc *IngestCorpusUseCase) Run(ctx context.Context) (IngestReport, error) {
	docs, err := uc.loader.Load(ctx)
	if err != nil {
		return IngestReport{}, fmt.Errorf("load corpus documents: %w", err)
	}

	report := IngestReport{Loaded: len(docs)}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingest interrupted: %w", err)
		}

		chunks, err := uc.ingestDocument(ctx, doc)
		if err != nil {
			report.Failed++
			slog.Warn("document ingest failed",
				"source", doc.Metadata.Source,
				"error", err,
			)
			continue
		}
		report.Ingested++
		report.Chunks += chunks
	}

	if report.Ingested > 0 {
		if err := uc.queue.PublishReindex(ctx); err != nil {
			return report, fmt.Errorf("publish reindex event: %w", err)
		}
	}

	return report, nil
}

func (uc *IngestCorpusUseCase) ingestDocument(ctx context.Context, doc domain.Document) (int, error) {
	chunks, err := uc.chunk(doc.Content)
	if err != nil {
		return 0, err
	}

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	if err := uc.vectorDB.IndexDocument(ctx, doc, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index chunks in vector db: %w", err)
	}

	if err := uc.store.SaveDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("save corpus document: %w", err)
	}

	return len(chunks), nil
}

func (uc *IngestCorpusUseCase) chunk(text string) ([]string, error) {
	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

func (uc *IngestCorpusUseCase) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}
