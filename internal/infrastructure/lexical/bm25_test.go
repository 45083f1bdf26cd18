package lexical

import (
	"testing"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

func taxCorpus() []domain.Document {
	return []domain.Document{
		{Content: "세무 신고 기한과 세무 신고 절차 안내", Metadata: domain.DocumentMetadata{Title: "tax-filing", Domain: "tax"}},
		{Content: "종합소득세 신고 대상과 세무 상담 안내", Metadata: domain.DocumentMetadata{Title: "income-tax", Domain: "tax"}},
		{Content: "근로 계약서 작성 시 유의할 조항", Metadata: domain.DocumentMetadata{Title: "labor-contract", Domain: "labor"}},
		{Content: "주택 임대차 계약 갱신 요구권 설명", Metadata: domain.DocumentMetadata{Title: "housing-lease", Domain: "housing"}},
		{Content: "법인 설립 등기 절차와 필요 서류", Metadata: domain.DocumentMetadata{Title: "incorporation", Domain: "corporate"}},
	}
}

func TestSearchRanksTermMatchesFirst(t *testing.T) {
	idx := NewIndex()
	idx.Fit(taxCorpus())

	results := idx.Search("세무 신고 방법", 3)
	if len(results) != 2 {
		t.Fatalf("expected 2 matching documents, got %d", len(results))
	}
	if results[0].Document.Metadata.Title != "tax-filing" {
		t.Fatalf("expected doc with both repeated terms first, got %s", results[0].Document.Metadata.Title)
	}
	if results[1].Document.Metadata.Title != "income-tax" {
		t.Fatalf("expected income-tax second, got %s", results[1].Document.Metadata.Title)
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("expected strictly higher score for stronger match")
	}
	for _, r := range results {
		if r.Source != domain.SourceLexical {
			t.Fatalf("expected lexical source tag, got %s", r.Source)
		}
		if r.Document.Metadata.Score != r.Score {
			t.Fatalf("expected raw score annotation to mirror result score")
		}
	}
}

func TestSearchIsDeterministic(t *testing.T) {
	idx := NewIndex()
	idx.Fit(taxCorpus())

	first := idx.Search("신고 절차", 5)
	second := idx.Search("신고 절차", 5)
	if len(first) != len(second) {
		t.Fatalf("expected deterministic result count")
	}
	for i := range first {
		if first[i].Document.Metadata.Title != second[i].Document.Metadata.Title || first[i].Score != second[i].Score {
			t.Fatalf("expected identical ranking on repeated search")
		}
	}
}

func TestSearchEmptyIndexAndEmptyQuery(t *testing.T) {
	idx := NewIndex()
	if got := idx.Search("세무", 5); got != nil {
		t.Fatalf("empty index must yield empty result, got %v", got)
	}

	idx.Fit(taxCorpus())
	if got := idx.Search("", 5); got != nil {
		t.Fatalf("empty query must yield empty result, got %v", got)
	}
	if got := idx.Search("   ", 5); got != nil {
		t.Fatalf("blank query must yield empty result, got %v", got)
	}
}

func TestFitSwapReplacesCorpus(t *testing.T) {
	idx := NewIndex()
	idx.Fit(taxCorpus())
	if idx.Size() != 5 {
		t.Fatalf("expected 5 docs, got %d", idx.Size())
	}

	idx.Fit([]domain.Document{{Content: "상속세 면제 한도"}})
	if idx.Size() != 1 {
		t.Fatalf("expected refit corpus of 1, got %d", idx.Size())
	}
	if got := idx.Search("세무 신고", 5); len(got) != 0 {
		t.Fatalf("old corpus must be unreachable after refit, got %d hits", len(got))
	}
}
