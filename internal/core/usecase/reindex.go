package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/knowledge-retriever/internal/core/ports"
)

// ReindexUseCase rebuilds the in-process lexical index from the corpus of
// record. The swap inside the index is atomic, so searches running during a
// rebuild keep reading the previous corpus.
type ReindexUseCase struct {
	store   ports.CorpusStore
	lexical ports.LexicalSearcher
}

func NewReindexUseCase(store ports.CorpusStore, lexical ports.LexicalSearcher) *ReindexUseCase {
	return &ReindexUseCase{
		store:   store,
		lexical: lexical,
	}
}

func (uc *ReindexUseCase) Reindex(ctx context.Context) error {
	docs, err := uc.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list corpus documents: %w", err)
	}

	uc.lexical.Fit(docs)
	slog.Info("lexical index rebuilt", "documents", len(docs))
	return nil
}
