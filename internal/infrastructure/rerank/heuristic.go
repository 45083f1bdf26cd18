package rerank

import (
	"context"
	"sort"
	"strings"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

// Heuristic reorders the head of a fused candidate list with a cheap blend of
// the normalized fused score, query token overlap and a title hit boost. It
// needs no model call, so it is the default reranker.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (r *Heuristic) Rerank(_ context.Context, query string, docs []domain.Document, topN int) []domain.Document {
	if len(docs) == 0 {
		return docs
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}

	head := make([]domain.Document, topN)
	copy(head, docs[:topN])
	queryTokens := domain.TokenSet(query)

	minScore := head[0].Metadata.RankingScore
	maxScore := head[0].Metadata.RankingScore
	for _, doc := range head[1:] {
		if s := doc.Metadata.RankingScore; s < minScore {
			minScore = s
		} else if s > maxScore {
			maxScore = s
		}
	}

	scoreRange := maxScore - minScore
	normalize := func(v float64) float64 {
		if scoreRange <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / scoreRange
	}

	for i := range head {
		normalized := normalize(head[i].Metadata.RankingScore)
		overlap := tokenOverlap(queryTokens, domain.TokenSet(head[i].Content))
		titleBoost := titleTokenHit(queryTokens, head[i].Metadata.Title)
		head[i].Metadata.RankingScore = 0.60*normalized + 0.30*overlap + 0.10*titleBoost
	}

	sort.SliceStable(head, func(i, j int) bool {
		if head[i].Metadata.RankingScore != head[j].Metadata.RankingScore {
			return head[i].Metadata.RankingScore > head[j].Metadata.RankingScore
		}
		return head[i].Metadata.Title < head[j].Metadata.Title
	})

	if topN == len(docs) {
		return head
	}
	out := make([]domain.Document, 0, len(docs))
	out = append(out, head...)
	out = append(out, docs[topN:]...)
	return out
}

func tokenOverlap(query, doc map[string]struct{}) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := doc[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func titleTokenHit(query map[string]struct{}, title string) float64 {
	if len(query) == 0 || title == "" {
		return 0
	}
	title = strings.ToLower(title)
	for token := range query {
		if token != "" && strings.Contains(title, token) {
			return 1
		}
	}
	return 0
}
