package usecase

import (
	"sort"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

type fusedCandidate struct {
	doc   domain.Document
	score float64
	order int
}

// fuseRanked merges N ranked lists with Reciprocal Rank Fusion: each document
// accumulates weight/(rank+K) over every list it appears in, with 0-based
// ranks and uniform weights by default. The fused score is written to
// rrf_score and mirrored to ranking_score; the originating score annotation is
// left untouched. Duplicates collapse by content key, keeping the first-seen
// copy. Ties keep first-seen order.
func fuseRanked(lists [][]domain.SearchResult, weights []float64, rrfK int) []domain.Document {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]*fusedCandidate)
	nextOrder := 0
	for listIdx, list := range lists {
		weight := 1.0
		if len(weights) > listIdx && weights[listIdx] > 0 {
			weight = weights[listIdx]
		}
		for rank, result := range list {
			key := result.Document.ContentKey()
			candidate, ok := acc[key]
			if !ok {
				candidate = &fusedCandidate{doc: result.Document, order: nextOrder}
				nextOrder++
				acc[key] = candidate
			}
			candidate.score += weight / float64(rank+rrfK)
		}
	}
	if len(acc) == 0 {
		return nil
	}

	out := make([]*fusedCandidate, 0, len(acc))
	for _, candidate := range acc {
		out = append(out, candidate)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})

	docs := make([]domain.Document, 0, len(out))
	for _, candidate := range out {
		doc := candidate.doc
		doc.Metadata.RRFScore = candidate.score
		doc.Metadata.RankingScore = candidate.score
		docs = append(docs, doc)
	}
	return docs
}
