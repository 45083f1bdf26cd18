package ollama

import (
	"context"
	"fmt"
	"math"
)

// Comparator scores texts against a query by cosine similarity of their
// embeddings, clamped to [0, 1]. The query and all texts are embedded in a
// single batch call.
type Comparator struct {
	embedder *Embedder
}

func NewComparator(embedder *Embedder) *Comparator {
	return &Comparator{embedder: embedder}
}

func (c *Comparator) Compare(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := make([]string, 0, len(texts)+1)
	batch = append(batch, query)
	batch = append(batch, texts...)

	vectors, err := c.embedder.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("compare: vectors/batch mismatch: %d/%d", len(vectors), len(batch))
	}

	queryVec := vectors[0]
	sims := make([]float64, len(texts))
	for i, vec := range vectors[1:] {
		sims[i] = clampUnit(cosine(queryVec, vec))
	}
	return sims, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
