package ports

import (
	"context"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

// DocumentRetriever is the inbound contract for quality-gated retrieval.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, error)
}

// CorpusIndexer is the inbound contract for (re)building the lexical index
// from the corpus of record.
type CorpusIndexer interface {
	Reindex(ctx context.Context) error
}
