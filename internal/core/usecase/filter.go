package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
	"github.com/kirillkom/knowledge-retriever/internal/core/ports"
)

// SimilarityFilter drops fused documents whose embedding similarity to the
// query falls below a threshold. It never empties a non-empty input: when
// everything falls below, the top fused document is retained as a fallback so
// the generator always receives at least one piece of context.
type SimilarityFilter struct {
	comparator ports.EmbeddingComparator
	threshold  float64
}

func NewSimilarityFilter(comparator ports.EmbeddingComparator, threshold float64) *SimilarityFilter {
	return &SimilarityFilter{comparator: comparator, threshold: threshold}
}

// Filter annotates each document with its embedding similarity and keeps the
// ones at or above the threshold. A comparator failure passes all documents
// through unannotated; the evaluator then falls back to the legacy score path.
func (f *SimilarityFilter) Filter(ctx context.Context, query string, docs []domain.Document) []domain.Document {
	if len(docs) == 0 || f.comparator == nil {
		return docs
	}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Content
	}

	sims, err := f.comparator.Compare(ctx, query, texts)
	if err != nil || len(sims) != len(docs) {
		slog.Warn("similarity_filter_degraded", "error", err, "docs", len(docs))
		return docs
	}

	kept := make([]domain.Document, 0, len(docs))
	for i := range docs {
		doc := docs[i]
		doc.Metadata.EmbeddingSimilarity = sims[i]
		doc.Metadata.EmbeddingChecked = true
		if sims[i] >= f.threshold {
			kept = append(kept, doc)
		}
	}
	if len(kept) > 0 {
		return kept
	}

	// Non-emptiness guarantee: keep the top-ranked fused document.
	fallback := docs[0]
	fallback.Metadata.EmbeddingSimilarity = 0.0
	fallback.Metadata.EmbeddingChecked = true
	fallback.Metadata.UsedFallback = true
	slog.Warn("similarity_filter_fallback", "query", query, "threshold", f.threshold)
	return []domain.Document{fallback}
}
