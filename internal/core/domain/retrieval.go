package domain

// ConversationTurn is one role/content pair of prior dialogue, used as
// read-only context for query expansion.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SearchStrategy controls how aggressively one retrieval attempt fetches and
// post-processes documents. It is a value type: retries mutate copies.
type SearchStrategy struct {
	K                int     `json:"k"`
	KCommon          int     `json:"k_common"`
	UseMMR           bool    `json:"use_mmr"`
	UseRerank        bool    `json:"use_rerank"`
	UseHybrid        bool    `json:"use_hybrid"`
	MMRLambda        float64 `json:"mmr_lambda"`
	FetchKMultiplier float64 `json:"fetch_k_multiplier"`
	ExpandSearch     bool    `json:"expand_search"`
}

// RetrievalRequest is the inbound retrieval contract.
type RetrievalRequest struct {
	Query         string             `json:"query"`
	Domain        string             `json:"domain"`
	CommonDomains []string           `json:"common_domains,omitempty"`
	History       []ConversationTurn `json:"history,omitempty"`
	Strategy      SearchStrategy     `json:"strategy"`
}

type QualityScoreSource string

const (
	ScoreSourceEmbedding QualityScoreSource = "embedding_similarity"
	ScoreSourceLegacy    QualityScoreSource = "legacy_score"
)

// RetrievalEvaluation is the rule-based verdict over one retrieved set.
// A failed evaluation is data that drives a retry, not an error.
type RetrievalEvaluation struct {
	Passed             bool               `json:"passed"`
	DocCount           int                `json:"doc_count"`
	KeywordMatchRatio  float64            `json:"keyword_match_ratio"`
	AvgSimilarityScore float64            `json:"avg_similarity_score"`
	Reason             string             `json:"reason,omitempty"`
	QualityScoreSource QualityScoreSource `json:"quality_score_source"`
}

// RetryLevel orders retrieval aggressiveness within one request. It only ever
// advances and resets with the next request.
type RetryLevel int

const (
	RetryInitial RetryLevel = iota
	RetryExpanded
	RetryAggressive
)

func (l RetryLevel) Next() RetryLevel {
	if l >= RetryAggressive {
		return RetryAggressive
	}
	return l + 1
}

func (l RetryLevel) String() string {
	switch l {
	case RetryInitial:
		return "initial"
	case RetryExpanded:
		return "expanded"
	default:
		return "aggressive"
	}
}

// RetrievalResult is what the caller always receives: a (possibly degraded)
// document list plus the evaluation verdict.
type RetrievalResult struct {
	Documents  []Document          `json:"documents"`
	Evaluation RetrievalEvaluation `json:"evaluation"`
	RetryCount int                 `json:"retry_count"`
	UsedCache  bool                `json:"used_cache"`
}
