package rerank

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
	"github.com/kirillkom/knowledge-retriever/internal/core/ports"
)

const (
	KindHeuristic = "heuristic"
	KindLLM       = "llm"
	KindRemote    = "remote"
)

// New selects the reranker variant at construction time.
func New(kind string, model ports.LanguageModel, remoteURL string, timeout time.Duration) (ports.Reranker, error) {
	switch kind {
	case "", KindHeuristic:
		return NewHeuristic(), nil
	case KindLLM:
		if model == nil {
			return nil, domain.WrapError(domain.ErrInvalidConfig, "select reranker", errors.New("llm reranker requires a language model"))
		}
		return NewLLM(model), nil
	case KindRemote:
		if remoteURL == "" {
			return nil, domain.WrapError(domain.ErrInvalidConfig, "select reranker", errors.New("remote reranker requires a url"))
		}
		return NewRemote(remoteURL, timeout), nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidConfig, "select reranker", fmt.Errorf("unknown reranker kind %q", kind))
	}
}
