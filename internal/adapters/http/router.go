package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
	"github.com/kirillkom/knowledge-retriever/internal/core/ports"
	"github.com/kirillkom/knowledge-retriever/internal/observability/metrics"
)

const maxRequestBodyBytes = 1 << 20

type Router struct {
	retriever ports.DocumentRetriever
	indexer   ports.CorpusIndexer
	limiter   ports.RateLimiter
	metrics   *metrics.HTTPServerMetrics
	service   string

	requestTimeout    time.Duration
	backpressureLimit int
	backpressureWait  time.Duration
}

func NewRouter(
	retriever ports.DocumentRetriever,
	indexer ports.CorpusIndexer,
	limiter ports.RateLimiter,
	serverMetrics *metrics.HTTPServerMetrics,
	service string,
	requestTimeout time.Duration,
	backpressureLimit int,
	backpressureWait time.Duration,
) *Router {
	return &Router{
		retriever:         retriever,
		indexer:           indexer,
		limiter:           limiter,
		metrics:           serverMetrics,
		service:           service,
		requestTimeout:    requestTimeout,
		backpressureLimit: backpressureLimit,
		backpressureWait:  backpressureWait,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/retrieve", rateLimitMiddleware(rt.limiter, rt.onRateLimited, http.HandlerFunc(rt.retrieve)))
	mux.HandleFunc("/v1/reindex", rt.reindex)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.backpressureLimit, rt.backpressureWait)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type retrieveRequest struct {
	Query         string                    `json:"query"`
	Domain        string                    `json:"domain"`
	CommonDomains []string                  `json:"common_domains"`
	History       []domain.ConversationTurn `json:"history"`
	Strategy      *domain.SearchStrategy    `json:"strategy"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req retrieveRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	retrievalReq := domain.RetrievalRequest{
		Query:         req.Query,
		Domain:        req.Domain,
		CommonDomains: req.CommonDomains,
		History:       req.History,
	}
	if req.Strategy != nil {
		retrievalReq.Strategy = *req.Strategy
	}

	// The whole retrieval pipeline, retries included, shares one deadline.
	ctx := r.Context()
	if rt.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := rt.retriever.Retrieve(ctx, retrievalReq)
	if err != nil {
		rt.recordRetrieval("error", 0, 0, time.Since(start))
		writeJSON(w, mapErrorToHTTPStatus(err), errorResponse{Error: err.Error()})
		return
	}

	outcome := "best_effort"
	if result.Evaluation.Passed {
		outcome = "passed"
	}
	rt.recordRetrieval(outcome, result.RetryCount, len(result.Documents), time.Since(start))
	if rt.metrics != nil {
		rt.metrics.RecordCacheLookup(rt.service, result.UsedCache)
	}

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) reindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	if rt.indexer == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "reindex is not available"})
		return
	}

	if err := rt.indexer.Reindex(r.Context()); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) recordRetrieval(outcome string, retries, docs int, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordRetrieval(rt.service, outcome, retries, docs, duration)
}

func (rt *Router) onRateLimited() {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordRateLimited(rt.service)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
