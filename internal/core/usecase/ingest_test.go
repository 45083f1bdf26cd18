package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

type fakeCorpusLoader struct {
	docs []domain.Document
	err  error
}

func (f *fakeCorpusLoader) Load(_ context.Context) ([]domain.Document, error) {
	return f.docs, f.err
}

type fakeChunker struct{}

func (fakeChunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return strings.Fields(text)
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type fakeVectorIndexer struct {
	indexed  []domain.Document
	failFor  string
	chunkLen []int
}

func (f *fakeVectorIndexer) IndexDocument(_ context.Context, doc domain.Document, chunks []string, vectors [][]float32) error {
	if f.failFor != "" && doc.Metadata.Source == f.failFor {
		return errors.New("vector db down")
	}
	if len(chunks) != len(vectors) {
		return errors.New("chunk/vector mismatch")
	}
	f.indexed = append(f.indexed, doc)
	f.chunkLen = append(f.chunkLen, len(chunks))
	return nil
}

type fakeCorpusStore struct {
	saved []domain.Document
	list  []domain.Document
	err   error
}

func (f *fakeCorpusStore) SaveDocument(_ context.Context, doc domain.Document) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, doc)
	return nil
}

func (f *fakeCorpusStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return f.list, f.err
}

type fakeQueue struct {
	published int
	err       error
}

func (f *fakeQueue) PublishReindex(_ context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.published++
	return nil
}

func (f *fakeQueue) SubscribeReindex(_ context.Context, _ func(context.Context) error) error {
	return nil
}

func corpusDoc(source, content string) domain.Document {
	return domain.Document{
		Content: content,
		Metadata: domain.DocumentMetadata{
			Title:  source,
			Source: source,
			Domain: "tax",
		},
	}
}

func TestIngestRunIndexesAndPublishes(t *testing.T) {
	loader := &fakeCorpusLoader{docs: []domain.Document{
		corpusDoc("a.txt", "alpha beta gamma"),
		corpusDoc("b.txt", "delta epsilon"),
	}}
	indexer := &fakeVectorIndexer{}
	store := &fakeCorpusStore{}
	queue := &fakeQueue{}

	uc := NewIngestCorpusUseCase(loader, fakeChunker{}, &fakeEmbedder{}, indexer, store, queue)
	report, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Loaded != 2 || report.Ingested != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Chunks != 5 {
		t.Fatalf("Chunks = %d, want 5", report.Chunks)
	}
	if len(store.saved) != 2 {
		t.Fatalf("saved %d documents, want 2", len(store.saved))
	}
	if len(indexer.indexed) != 2 {
		t.Fatalf("indexed %d documents, want 2", len(indexer.indexed))
	}
	if queue.published != 1 {
		t.Fatalf("published %d reindex events, want 1", queue.published)
	}
}

func TestIngestRunSkipsFailedDocument(t *testing.T) {
	loader := &fakeCorpusLoader{docs: []domain.Document{
		corpusDoc("good.txt", "alpha beta"),
		corpusDoc("bad.txt", "gamma delta"),
	}}
	indexer := &fakeVectorIndexer{failFor: "bad.txt"}
	store := &fakeCorpusStore{}
	queue := &fakeQueue{}

	uc := NewIngestCorpusUseCase(loader, fakeChunker{}, &fakeEmbedder{}, indexer, store, queue)
	report, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Ingested != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(store.saved) != 1 || store.saved[0].Metadata.Source != "good.txt" {
		t.Fatalf("unexpected saved documents: %+v", store.saved)
	}
	if queue.published != 1 {
		t.Fatalf("published %d reindex events, want 1", queue.published)
	}
}

func TestIngestRunEmptyContentCountsAsFailure(t *testing.T) {
	loader := &fakeCorpusLoader{docs: []domain.Document{corpusDoc("empty.txt", "   ")}}
	queue := &fakeQueue{}

	uc := NewIngestCorpusUseCase(loader, fakeChunker{}, &fakeEmbedder{}, &fakeVectorIndexer{}, &fakeCorpusStore{}, queue)
	report, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Failed != 1 || report.Ingested != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if queue.published != 0 {
		t.Fatal("reindex must not be published when nothing was ingested")
	}
}

func TestIngestRunLoaderErrorIsFatal(t *testing.T) {
	loader := &fakeCorpusLoader{err: errors.New("mount missing")}

	uc := NewIngestCorpusUseCase(loader, fakeChunker{}, &fakeEmbedder{}, &fakeVectorIndexer{}, &fakeCorpusStore{}, &fakeQueue{})
	if _, err := uc.Run(context.Background()); err == nil {
		t.Fatal("expected loader error")
	}
}

type fakeLexicalIndex struct {
	fitDocs [][]domain.Document
}

func (f *fakeLexicalIndex) Fit(docs []domain.Document) {
	f.fitDocs = append(f.fitDocs, docs)
}

func (f *fakeLexicalIndex) Search(_ string, _ int) []domain.SearchResult {
	return nil
}

func TestReindexFitsCorpus(t *testing.T) {
	store := &fakeCorpusStore{list: []domain.Document{
		corpusDoc("a.txt", "alpha"),
		corpusDoc("b.txt", "beta"),
	}}
	lexical := &fakeLexicalIndex{}

	uc := NewReindexUseCase(store, lexical)
	if err := uc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	if len(lexical.fitDocs) != 1 || len(lexical.fitDocs[0]) != 2 {
		t.Fatalf("unexpected fit calls: %+v", lexical.fitDocs)
	}
}

func TestReindexPropagatesStoreError(t *testing.T) {
	store := &fakeCorpusStore{err: errors.New("db down")}
	lexical := &fakeLexicalIndex{}

	uc := NewReindexUseCase(store, lexical)
	if err := uc.Reindex(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
	if len(lexical.fitDocs) != 0 {
		t.Fatal("Fit must not run when listing fails")
	}
}
