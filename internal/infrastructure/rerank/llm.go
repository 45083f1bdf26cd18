package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
	"github.com/kirillkom/knowledge-retriever/internal/core/ports"
)

const llmSnippetRunes = 400

// LLM asks the language model to order the head candidates by relevance and
// parses the returned index list. Any call or parse failure keeps the
// original order, so this reranker can only reorder, never lose documents.
type LLM struct {
	model ports.LanguageModel
}

func NewLLM(model ports.LanguageModel) *LLM {
	return &LLM{model: model}
}

func (r *LLM) Rerank(ctx context.Context, query string, docs []domain.Document, topN int) []domain.Document {
	if len(docs) < 2 || r.model == nil {
		return docs
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}

	raw, err := r.model.Generate(ctx, buildRerankPrompt(query, docs[:topN]))
	if err != nil {
		slog.Warn("llm_rerank_failed", "error", err)
		return docs
	}

	order := parseIndexOrder(raw, topN)
	if order == nil {
		slog.Warn("llm_rerank_unparseable", "response_prefix", prefixRunes(raw, 80))
		return docs
	}

	out := make([]domain.Document, 0, len(docs))
	for _, idx := range order {
		out = append(out, docs[idx])
	}
	out = append(out, docs[topN:]...)
	return out
}

func buildRerankPrompt(query string, docs []domain.Document) string {
	var b strings.Builder
	b.WriteString("Order the documents below from most to least relevant to the question.\n")
	fmt.Fprintf(&b, "Return a JSON array of the document numbers, e.g. [2,0,1]. Nothing else.\n\nQuestion: %s\n\n", query)
	for i, doc := range docs {
		fmt.Fprintf(&b, "Document %d:\n%s\n\n", i, prefixRunes(doc.Content, llmSnippetRunes))
	}
	return b.String()
}

// parseIndexOrder accepts a JSON array of indices covering any subset of
// [0,n); unseen indices keep their relative order at the tail.
func parseIndexOrder(raw string, n int) []int {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil
	}

	var parsed []int
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil
	}

	seen := make(map[int]bool, n)
	order := make([]int, 0, n)
	for _, idx := range parsed {
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		order = append(order, idx)
	}
	if len(order) == 0 {
		return nil
	}
	for idx := 0; idx < n; idx++ {
		if !seen[idx] {
			order = append(order, idx)
		}
	}
	return order
}

func prefixRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
