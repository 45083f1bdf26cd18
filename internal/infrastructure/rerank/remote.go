package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

// Remote delegates scoring to an external cross-encoder service speaking a
// minimal JSON contract: {"query": ..., "documents": [...]} in,
// {"scores": [...]} out, one score per document in input order. Failure keeps
// the original order.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type remoteResponse struct {
	Scores []float64 `json:"scores"`
}

func (r *Remote) Rerank(ctx context.Context, query string, docs []domain.Document, topN int) []domain.Document {
	if len(docs) < 2 {
		return docs
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}

	scores, err := r.score(ctx, query, docs[:topN])
	if err != nil || len(scores) != topN {
		slog.Warn("remote_rerank_degraded", "error", err, "scores", len(scores), "docs", topN)
		return docs
	}

	head := make([]domain.Document, topN)
	copy(head, docs[:topN])
	for i := range head {
		head[i].Metadata.RankingScore = scores[i]
	}
	sort.SliceStable(head, func(i, j int) bool {
		return head[i].Metadata.RankingScore > head[j].Metadata.RankingScore
	})

	if topN == len(docs) {
		return head
	}
	out := make([]domain.Document, 0, len(docs))
	out = append(out, head...)
	out = append(out, docs[topN:]...)
	return out
}

func (r *Remote) score(ctx context.Context, query string, docs []domain.Document) ([]float64, error) {
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Content
	}

	body, err := json.Marshal(remoteRequest{Query: query, Documents: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("rerank status: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return parsed.Scores, nil
}
