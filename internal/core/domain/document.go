package domain

import (
	"fmt"
	"hash/fnv"
)

// contentKeyPrefixRunes bounds the slice of content hashed for identity.
// Documents sharing this prefix are treated as the same document; this is an
// approximate-identity policy, not exact equality.
const contentKeyPrefixRunes = 500

type RetrievalSource string

const (
	SourceLexical RetrievalSource = "lexical"
	SourceVector  RetrievalSource = "vector"
	SourceHybrid  RetrievalSource = "hybrid"
)

// DocumentMetadata carries the mutable annotations of a retrieved document.
// Score holds the raw score assigned by the originating source (BM25 weight or
// vector similarity) and is never rewritten by fusion.
type DocumentMetadata struct {
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"`
	Domain string `json:"domain,omitempty"`

	Score        float64 `json:"score,omitempty"`
	RRFScore     float64 `json:"rrf_score,omitempty"`
	RankingScore float64 `json:"ranking_score,omitempty"`

	// EmbeddingSimilarity is meaningful only when EmbeddingChecked is set;
	// a checked value of exactly 0.0 is a real zero-signal, not missing data.
	EmbeddingSimilarity float64 `json:"embedding_similarity,omitempty"`
	EmbeddingChecked    bool    `json:"embedding_checked,omitempty"`
	UsedFallback        bool    `json:"used_fallback,omitempty"`
}

type Document struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// ContentKey is the deduplication identity of a document: an FNV-64a hash of
// the first 500 runes of content.
func (d Document) ContentKey() string {
	runes := []rune(d.Content)
	if len(runes) > contentKeyPrefixRunes {
		runes = runes[:contentKeyPrefixRunes]
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(string(runes)))
	return fmt.Sprintf("%016x", h.Sum64())
}

// SearchResult is one ranked hit from a single retrieval source.
type SearchResult struct {
	Document Document        `json:"document"`
	Score    float64         `json:"score"`
	Source   RetrievalSource `json:"source"`
}
