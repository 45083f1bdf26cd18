package usecase

import "github.com/kirillkom/knowledge-retriever/internal/core/domain"

// DocumentBudgetCalculator clamps per-domain document quotas so the total
// requested across the primary and supplemental domains never exceeds the
// global maximum.
type DocumentBudgetCalculator struct {
	maxDocs int
}

func NewDocumentBudgetCalculator(maxDocs int) *DocumentBudgetCalculator {
	return &DocumentBudgetCalculator{maxDocs: maxDocs}
}

// Clamp trims strategy.K and strategy.KCommon so that
// K + KCommon*commonDomains <= maxDocs. KCommon is reduced first since
// supplemental domains are the cheaper coverage to give up; K is never
// reduced below one.
func (c *DocumentBudgetCalculator) Clamp(strategy domain.SearchStrategy, commonDomains int) domain.SearchStrategy {
	if c.maxDocs <= 0 {
		return strategy
	}
	if strategy.K < 1 {
		strategy.K = 1
	}
	if strategy.KCommon < 0 {
		strategy.KCommon = 0
	}

	total := func() int { return strategy.K + strategy.KCommon*commonDomains }

	for total() > c.maxDocs && strategy.KCommon > 0 {
		strategy.KCommon--
	}
	for total() > c.maxDocs && strategy.K > 1 {
		strategy.K--
	}
	return strategy
}

// MergeDocuments combines the primary-domain documents with supplemental
// common-domain documents, deduplicating by content identity. On conflict the
// primary copy wins. The merged list is truncated to maxDocs when positive.
func MergeDocuments(primary, supplemental []domain.Document, maxDocs int) []domain.Document {
	merged := make([]domain.Document, 0, len(primary)+len(supplemental))
	seen := make(map[string]struct{}, len(primary)+len(supplemental))

	for _, doc := range primary {
		key := doc.ContentKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, doc)
	}
	for _, doc := range supplemental {
		key := doc.ContentKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, doc)
	}

	if maxDocs > 0 && len(merged) > maxDocs {
		merged = merged[:maxDocs]
	}
	return merged
}
