// Package lexical provides the in-memory BM25 keyword index.
package lexical

import (
	"math"
	"sort"
	"sync/atomic"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

type indexState struct {
	docs   []domain.Document
	freqs  []map[string]int
	lens   []int
	avgLen float64
	idf    map[string]float64
}

// Index is a BM25 index over the document corpus. Fit publishes a fresh state
// through an atomic pointer so a rebuild is never observed mid-query.
type Index struct {
	k1    float64
	b     float64
	state atomic.Pointer[indexState]
}

func NewIndex() *Index {
	return NewIndexWithParams(defaultK1, defaultB)
}

func NewIndexWithParams(k1, b float64) *Index {
	if k1 <= 0 {
		k1 = defaultK1
	}
	if b < 0 || b > 1 {
		b = defaultB
	}
	idx := &Index{k1: k1, b: b}
	idx.state.Store(&indexState{idf: map[string]float64{}})
	return idx
}

// Fit rebuilds term frequencies, document lengths and inverse document
// frequencies for the given corpus, then swaps the index state atomically.
func (idx *Index) Fit(docs []domain.Document) {
	st := &indexState{
		docs:  make([]domain.Document, len(docs)),
		freqs: make([]map[string]int, len(docs)),
		lens:  make([]int, len(docs)),
		idf:   make(map[string]float64),
	}
	copy(st.docs, docs)

	df := make(map[string]int)
	totalLen := 0
	for i, doc := range docs {
		tokens := domain.Tokenize(doc.Content)
		freq := make(map[string]int, len(tokens))
		for _, token := range tokens {
			freq[token]++
		}
		st.freqs[i] = freq
		st.lens[i] = len(tokens)
		totalLen += len(tokens)
		for token := range freq {
			df[token]++
		}
	}
	if len(docs) > 0 {
		st.avgLen = float64(totalLen) / float64(len(docs))
	}

	n := float64(len(docs))
	for token, count := range df {
		st.idf[token] = math.Log((n-float64(count)+0.5)/(float64(count)+0.5) + 1)
	}

	idx.state.Store(st)
}

// Size reports the number of indexed documents.
func (idx *Index) Size() int {
	return len(idx.state.Load().docs)
}

// Search scores every document against the query and returns the top k hits
// tagged lexical, descending by score. Ties keep the original corpus order.
// An empty index or query yields an empty result.
func (idx *Index) Search(query string, k int) []domain.SearchResult {
	st := idx.state.Load()
	if len(st.docs) == 0 || k <= 0 {
		return nil
	}
	queryTokens := domain.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	type scored struct {
		pos   int
		score float64
	}
	candidates := make([]scored, 0, len(st.docs))
	for i := range st.docs {
		score := idx.scoreDoc(st, i, queryTokens)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{pos: i, score: score})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		doc := st.docs[c.pos]
		doc.Metadata.Score = c.score
		out = append(out, domain.SearchResult{
			Document: doc,
			Score:    c.score,
			Source:   domain.SourceLexical,
		})
	}
	return out
}

func (idx *Index) scoreDoc(st *indexState, pos int, queryTokens []string) float64 {
	freq := st.freqs[pos]
	docLen := float64(st.lens[pos])

	score := 0.0
	for _, token := range queryTokens {
		tf := float64(freq[token])
		if tf == 0 {
			continue
		}
		idfValue := st.idf[token]
		norm := tf + idx.k1*(1-idx.b+idx.b*docLen/st.avgLen)
		score += idfValue * tf * (idx.k1 + 1) / norm
	}
	return score
}
