package ports

import (
	"context"
	"time"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

// VectorRetriever performs nearest-neighbor search over an embedding index.
// Failures must be treated by callers as an empty list, never as fatal.
type VectorRetriever interface {
	Search(ctx context.Context, query, domainName string, k int) ([]domain.SearchResult, error)
}

// LexicalSearcher is the in-process keyword index. Fit replaces the corpus
// atomically; Search is read-only and never observes a rebuild mid-query.
type LexicalSearcher interface {
	Fit(docs []domain.Document)
	Search(query string, k int) []domain.SearchResult
}

// EmbeddingComparator scores each text against the query in [0,1].
// One call covers a whole batch so the query is embedded once.
type EmbeddingComparator interface {
	Compare(ctx context.Context, query string, texts []string) ([]float64, error)
}

// LanguageModel is the injected text-generation call used by query expansion
// and the llm reranker. Any failure or timeout is non-fatal to retrieval.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Reranker reorders the head of a fused candidate list for a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []domain.Document, topN int) []domain.Document
}

// ResponseCache stores complete retrieval results keyed by normalized
// query+domain. Read/write failures are absorbed by the caller.
type ResponseCache interface {
	Get(key string) (*domain.RetrievalResult, bool)
	Set(key string, value *domain.RetrievalResult, ttl time.Duration)
}

// RateLimiter admits or rejects a caller key.
type RateLimiter interface {
	Allow(key string) bool
	RetryAfter(key string) time.Duration
}

// CorpusStore is the corpus of record feeding the lexical index.
type CorpusStore interface {
	SaveDocument(ctx context.Context, doc domain.Document) error
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}

// VectorIndexer upserts embedded chunks into the vector index (worker side).
type VectorIndexer interface {
	IndexDocument(ctx context.Context, doc domain.Document, chunks []string, vectors [][]float32) error
}

// MessageQueue publishes/consumes corpus reindex events.
type MessageQueue interface {
	PublishReindex(ctx context.Context) error
	SubscribeReindex(ctx context.Context, handler func(context.Context) error) error
}

// CorpusLoader reads source documents from an external location (worker side).
type CorpusLoader interface {
	Load(ctx context.Context) ([]domain.Document, error)
}

// Chunker splits text into embeddable chunks.
type Chunker interface {
	Split(text string) []string
}
