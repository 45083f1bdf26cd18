package usecase

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
	"github.com/kirillkom/knowledge-retriever/internal/core/ports"
)

// RetrieveParams are the request-independent knobs of the retry engine.
// Semantic-only operation is expressed through the default strategy's
// UseHybrid flag, not a separate mode switch.
type RetrieveParams struct {
	RRFK          int
	MaxRetryCount int
	MaxDocs       int
	RerankTopN    int
	CacheTTL      time.Duration
}

// RetrieveUseCase runs quality-gated hybrid retrieval: fetch, fuse, filter,
// evaluate, and escalate the search strategy across bounded retries until the
// evaluation passes or the retry budget is exhausted. Exhaustion returns the
// best-scoring attempt, never an error.
type RetrieveUseCase struct {
	lexical    ports.LexicalSearcher
	vector     ports.VectorRetriever
	expander   *QueryExpander
	filter     *SimilarityFilter
	evaluator  *QualityEvaluator
	strategist *FeedbackStrategist
	budget     *DocumentBudgetCalculator
	reranker   ports.Reranker
	cache      ports.ResponseCache

	defaults domain.SearchStrategy
	params   RetrieveParams

	onSourceFailure func(source string)
}

// OnSourceFailure registers a hook invoked whenever a retrieval source
// degrades to an empty result, e.g. to feed a failure counter. The hook may
// be called from concurrent search goroutines. Register before serving
// traffic.
func (uc *RetrieveUseCase) OnSourceFailure(fn func(source string)) {
	uc.onSourceFailure = fn
}

func (uc *RetrieveUseCase) reportSourceFailure(source string) {
	if uc.onSourceFailure != nil {
		uc.onSourceFailure(source)
	}
}

func NewRetrieveUseCase(
	lexical ports.LexicalSearcher,
	vector ports.VectorRetriever,
	expander *QueryExpander,
	filter *SimilarityFilter,
	evaluator *QualityEvaluator,
	strategist *FeedbackStrategist,
	budget *DocumentBudgetCalculator,
	reranker ports.Reranker,
	cache ports.ResponseCache,
	defaults domain.SearchStrategy,
	params RetrieveParams,
) *RetrieveUseCase {
	if params.RRFK <= 0 {
		params.RRFK = 60
	}
	if params.MaxRetryCount < 0 {
		params.MaxRetryCount = 0
	}
	return &RetrieveUseCase{
		lexical:    lexical,
		vector:     vector,
		expander:   expander,
		filter:     filter,
		evaluator:  evaluator,
		strategist: strategist,
		budget:     budget,
		reranker:   reranker,
		cache:      cache,
		defaults:   defaults,
		params:     params,
	}
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("empty query"))
	}
	req.Query = query

	key := cacheKey(query, req.Domain)
	if uc.cache != nil {
		if cached, ok := uc.cache.Get(key); ok {
			hit := *cached
			hit.UsedCache = true
			return &hit, nil
		}
	}

	strategy := uc.normalizeStrategy(req.Strategy)
	level := domain.RetryInitial

	var best *domain.RetrievalResult
	for attempt := 0; attempt <= uc.params.MaxRetryCount; attempt++ {
		if ctx.Err() != nil {
			break
		}

		docs := uc.runAttempt(ctx, req, strategy)
		eval := uc.evaluator.Evaluate(query, docs, nil)
		result := &domain.RetrievalResult{
			Documents:  docs,
			Evaluation: eval,
			RetryCount: attempt,
		}
		if betterResult(result, best) {
			best = result
		}
		if eval.Passed {
			break
		}
		if attempt == uc.params.MaxRetryCount {
			slog.Info("retrieval_retries_exhausted",
				"query", query, "level", level.String(), "reason", eval.Reason)
			break
		}

		slog.Debug("retrieval_retry",
			"query", query, "attempt", attempt, "level", level.String(), "reason", eval.Reason)
		strategy = uc.strategist.Suggest(eval.Reason, strategy, attempt+1)
		strategy = uc.budget.Clamp(strategy, len(req.CommonDomains))
		level = level.Next()
	}

	if best == nil {
		return nil, fmt.Errorf("retrieve %q: %w", query, ctx.Err())
	}
	if best.Evaluation.Passed && uc.cache != nil {
		uc.cache.Set(key, best, uc.params.CacheTTL)
	}
	return best, nil
}

// runAttempt executes one full pipeline pass under the given strategy.
// Collaborator failures degrade to fewer documents, never to an error.
func (uc *RetrieveUseCase) runAttempt(ctx context.Context, req domain.RetrievalRequest, strategy domain.SearchStrategy) []domain.Document {
	variants := []string{req.Query}
	if strategy.ExpandSearch && uc.expander != nil {
		variants = uc.expander.Expand(ctx, req.Query, req.History)
	}

	fetchK := overFetch(strategy.K, strategy.FetchKMultiplier)
	lists := uc.searchPrimary(ctx, variants, req.Domain, fetchK, strategy.UseHybrid)

	fused := fuseRanked(lists, nil, uc.params.RRFK)
	if len(fused) > fetchK {
		fused = fused[:fetchK]
	}

	supplemental := uc.searchCommon(ctx, req.Query, req.CommonDomains, strategy.KCommon)

	totalBudget := strategy.K + strategy.KCommon*len(req.CommonDomains)
	if uc.params.MaxDocs > 0 && totalBudget > uc.params.MaxDocs {
		totalBudget = uc.params.MaxDocs
	}

	docs := MergeDocuments(fused, supplemental, 0)
	if uc.filter != nil {
		docs = uc.filter.Filter(ctx, req.Query, docs)
	}
	if strategy.UseMMR {
		docs = SelectMMR(docs, strategy.MMRLambda, totalBudget)
	}
	if strategy.UseRerank && uc.reranker != nil {
		topN := uc.params.RerankTopN
		if topN <= 0 || topN > totalBudget {
			topN = totalBudget
		}
		docs = uc.reranker.Rerank(ctx, req.Query, docs, topN)
	}
	if len(docs) > totalBudget {
		docs = docs[:totalBudget]
	}
	return docs
}

// searchPrimary fans out over query variants and sources. List order is fixed
// (vector then lexical per variant) so fusion ranks are deterministic for a
// given input regardless of goroutine scheduling.
func (uc *RetrieveUseCase) searchPrimary(ctx context.Context, variants []string, domainName string, fetchK int, hybrid bool) [][]domain.SearchResult {
	useVector := uc.vector != nil
	useLexical := uc.lexical != nil && hybrid

	lists := make([][]domain.SearchResult, len(variants)*2)
	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		i, variant := i, variant
		if useVector {
			g.Go(func() error {
				results, err := uc.vector.Search(gctx, variant, domainName, fetchK)
				if err != nil {
					slog.Warn("vector_search_failed", "variant", variant, "error", err)
					uc.reportSourceFailure("vector")
					return nil
				}
				lists[i*2] = results
				return nil
			})
		}
		if useLexical {
			g.Go(func() error {
				lists[i*2+1] = uc.lexical.Search(variant, fetchK)
				return nil
			})
		}
	}
	_ = g.Wait()

	out := lists[:0]
	for _, list := range lists {
		if len(list) > 0 {
			out = append(out, list)
		}
	}
	return out
}

// searchCommon fetches supplemental documents from adjacent domains, vector
// only: the lexical index is not partitioned by domain.
func (uc *RetrieveUseCase) searchCommon(ctx context.Context, query string, domains []string, kCommon int) []domain.Document {
	if uc.vector == nil || kCommon <= 0 || len(domains) == 0 {
		return nil
	}

	perDomain := make([][]domain.Document, len(domains))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range domains {
		i, name := i, name
		g.Go(func() error {
			results, err := uc.vector.Search(gctx, query, name, kCommon)
			if err != nil {
				slog.Warn("common_domain_search_failed", "domain", name, "error", err)
				uc.reportSourceFailure("common_domain")
				return nil
			}
			docs := make([]domain.Document, 0, len(results))
			for _, r := range results {
				doc := r.Document
				doc.Metadata.Score = r.Score
				if doc.Metadata.RankingScore == 0 {
					doc.Metadata.RankingScore = r.Score
				}
				docs = append(docs, doc)
			}
			perDomain[i] = docs
			return nil
		})
	}
	_ = g.Wait()

	var out []domain.Document
	for _, docs := range perDomain {
		out = append(out, docs...)
	}
	return out
}

func (uc *RetrieveUseCase) normalizeStrategy(strategy domain.SearchStrategy) domain.SearchStrategy {
	if strategy.K <= 0 {
		strategy = uc.defaults
	}
	if strategy.FetchKMultiplier <= 0 {
		strategy.FetchKMultiplier = uc.defaults.FetchKMultiplier
	}
	if strategy.MMRLambda <= 0 {
		strategy.MMRLambda = uc.defaults.MMRLambda
	}
	return uc.budget.Clamp(strategy, 0)
}

func overFetch(k int, multiplier float64) int {
	if multiplier < 1 {
		multiplier = 1
	}
	fetchK := int(math.Ceil(float64(k) * multiplier))
	if fetchK < k {
		fetchK = k
	}
	return fetchK
}

// betterResult prefers a passed evaluation, then higher average similarity,
// then more documents. Used to pick the answer returned on retry exhaustion.
func betterResult(candidate, current *domain.RetrievalResult) bool {
	if current == nil {
		return true
	}
	if candidate.Evaluation.Passed != current.Evaluation.Passed {
		return candidate.Evaluation.Passed
	}
	if candidate.Evaluation.AvgSimilarityScore != current.Evaluation.AvgSimilarityScore {
		return candidate.Evaluation.AvgSimilarityScore > current.Evaluation.AvgSimilarityScore
	}
	return candidate.Evaluation.DocCount > current.Evaluation.DocCount
}

// cacheKey hashes the normalized query plus the target domain. Normalization
// lowercases and collapses whitespace so trivially reworded lookups share an
// entry.
func cacheKey(query, domainName string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	h := fnv.New64a()
	h.Write([]byte(normalized))
	h.Write([]byte{':'})
	h.Write([]byte(domainName))
	return fmt.Sprintf("%016x", h.Sum64())
}
