package usecase

import "github.com/kirillkom/knowledge-retriever/internal/core/domain"

// SelectMMR picks up to limit documents greedily, trading relevance against
// diversity: at each step it takes the candidate maximizing
// lambda*relevance - (1-lambda)*maxSimilarityToSelected, where relevance is
// the document's ranking score and similarity is token-set Jaccard overlap.
// lambda=1 is pure relevance, lambda=0 pure diversity.
func SelectMMR(docs []domain.Document, lambda float64, limit int) []domain.Document {
	if limit <= 0 || len(docs) == 0 {
		return nil
	}
	if len(docs) <= limit && lambda >= 1 {
		out := make([]domain.Document, len(docs))
		copy(out, docs)
		return out
	}
	if lambda < 0 {
		lambda = 0
	} else if lambda > 1 {
		lambda = 1
	}

	tokens := make([]map[string]struct{}, len(docs))
	for i, doc := range docs {
		tokens[i] = domain.TokenSet(doc.Content)
	}

	selected := make([]domain.Document, 0, limit)
	selectedIdx := make([]int, 0, limit)
	used := make([]bool, len(docs))

	for len(selected) < limit && len(selected) < len(docs) {
		best := -1
		bestScore := 0.0
		for i := range docs {
			if used[i] {
				continue
			}
			redundancy := 0.0
			for _, j := range selectedIdx {
				if sim := jaccard(tokens[i], tokens[j]); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*relevanceScore(docs[i]) - (1-lambda)*redundancy
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best == -1 {
			break
		}
		used[best] = true
		selectedIdx = append(selectedIdx, best)
		selected = append(selected, docs[best])
	}
	return selected
}

// relevanceScore prefers the fused ranking score and falls back to the raw
// retrieval score for documents that never passed through fusion.
func relevanceScore(doc domain.Document) float64 {
	if doc.Metadata.RankingScore > 0 {
		return doc.Metadata.RankingScore
	}
	return doc.Metadata.Score
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
