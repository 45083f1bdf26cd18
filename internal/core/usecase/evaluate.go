package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

// EvaluatorThresholds are the pass bars of the rule-based quality gate.
type EvaluatorThresholds struct {
	MinDocCount           int
	MinKeywordMatchRatio  float64
	MinAvgSimilarityScore float64
}

// QualityEvaluator judges a retrieved document set for a query with three
// independent checks: document count, keyword coverage and average similarity.
// A failed evaluation is a normal outcome driving a retry, never an error.
type QualityEvaluator struct {
	thresholds EvaluatorThresholds
}

func NewQualityEvaluator(thresholds EvaluatorThresholds) *QualityEvaluator {
	return &QualityEvaluator{thresholds: thresholds}
}

// Evaluate runs all three checks. legacyScores, when supplied, backs the
// similarity check for document sets without embedding annotations.
func (e *QualityEvaluator) Evaluate(query string, docs []domain.Document, legacyScores []float64) domain.RetrievalEvaluation {
	eval := domain.RetrievalEvaluation{DocCount: len(docs)}
	failures := make([]string, 0, 3)

	if len(docs) < e.thresholds.MinDocCount {
		failures = append(failures, fmt.Sprintf("insufficient documents: %d < %d", len(docs), e.thresholds.MinDocCount))
	}

	eval.KeywordMatchRatio = keywordCoverage(query, docs)
	if eval.KeywordMatchRatio < e.thresholds.MinKeywordMatchRatio {
		failures = append(failures, fmt.Sprintf("low keyword coverage: %.2f < %.2f", eval.KeywordMatchRatio, e.thresholds.MinKeywordMatchRatio))
	}

	eval.AvgSimilarityScore, eval.QualityScoreSource = averageSimilarity(docs, legacyScores)
	if eval.AvgSimilarityScore < e.thresholds.MinAvgSimilarityScore {
		failures = append(failures, fmt.Sprintf("low average similarity: %.2f < %.2f", eval.AvgSimilarityScore, e.thresholds.MinAvgSimilarityScore))
	}

	eval.Passed = len(failures) == 0
	if !eval.Passed {
		eval.Reason = strings.Join(failures, "; ")
	}
	return eval
}

// keywordCoverage is the share of query keywords found anywhere in the
// concatenated document text. A query without keywords covers trivially.
func keywordCoverage(query string, docs []domain.Document) float64 {
	keywords := domain.QueryKeywords(query)
	if len(keywords) == 0 {
		return 1.0
	}

	var b strings.Builder
	for _, doc := range docs {
		b.WriteString(strings.ToLower(doc.Content))
		b.WriteByte(' ')
	}
	haystack := b.String()

	found := 0
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

// averageSimilarity selects the quality signal. Embedding annotations win when
// any document carries a non-zero one; exact zeros mean "no embedding
// comparison available" and are excluded from the average, unless every
// document is zero, in which case the average is 0.0 and the check fails.
// Without any embedding data the legacy raw scores back the check, averaging
// positive values and converting distance-style values above 1.0 via
// 1 - distance/2.
func averageSimilarity(docs []domain.Document, legacyScores []float64) (float64, domain.QualityScoreSource) {
	sum := 0.0
	n := 0
	checked := false
	for _, doc := range docs {
		if doc.Metadata.EmbeddingChecked {
			checked = true
		}
		if sim := doc.Metadata.EmbeddingSimilarity; sim != 0.0 {
			sum += sim
			n++
		}
	}
	if n > 0 {
		return sum / float64(n), domain.ScoreSourceEmbedding
	}
	if checked {
		// Every compared document scored exactly zero; this is a real
		// all-zero signal, not missing data.
		return 0.0, domain.ScoreSourceEmbedding
	}

	scores := legacyScores
	if scores == nil {
		scores = make([]float64, 0, len(docs))
		for _, doc := range docs {
			scores = append(scores, doc.Metadata.Score)
		}
	}

	sum, n = 0.0, 0
	for _, score := range scores {
		if score <= 0 {
			continue
		}
		if score > 1.0 {
			// Distance metric, not a similarity.
			score = 1.0 - score/2.0
			if score < 0 {
				score = 0
			}
		}
		sum += score
		n++
	}
	if n == 0 {
		return 0.0, domain.ScoreSourceLegacy
	}
	return sum / float64(n), domain.ScoreSourceLegacy
}
