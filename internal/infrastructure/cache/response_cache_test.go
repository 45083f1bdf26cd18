package cache

import (
	"testing"
	"time"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

func cachedResult(count int) *domain.RetrievalResult {
	return &domain.RetrievalResult{
		Evaluation: domain.RetrievalEvaluation{Passed: true, DocCount: count},
	}
}

func TestResponseCache_HitMissAndCounters(t *testing.T) {
	c, err := NewResponseCache(4, time.Minute)
	if err != nil {
		t.Fatalf("NewResponseCache: %v", err)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get on empty cache returned a value")
	}

	c.Set("a", cachedResult(3), 0)
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("Get after Set missed")
	}
	if got.Evaluation.DocCount != 3 {
		t.Errorf("DocCount = %d, want 3", got.Evaluation.DocCount)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %.2f, want 0.50", stats.HitRate)
	}
}

func TestResponseCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewResponseCache(2, time.Minute)
	if err != nil {
		t.Fatalf("NewResponseCache: %v", err)
	}

	c.Set("a", cachedResult(1), 0)
	c.Set("b", cachedResult(2), 0)

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get(a) missed")
	}

	c.Set("c", cachedResult(3), 0)

	if _, ok := c.Get("b"); ok {
		t.Error("b survived eviction, want LRU entry dropped")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a was evicted despite being recently used")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c missing after insert")
	}
	if stats := c.Stats(); stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestResponseCache_PerEntryTTL(t *testing.T) {
	c, err := NewResponseCache(4, time.Hour)
	if err != nil {
		t.Fatalf("NewResponseCache: %v", err)
	}
	current := time.Unix(1700000000, 0)
	c.now = func() time.Time { return current }

	c.Set("short", cachedResult(1), 100*time.Millisecond)
	c.Set("long", cachedResult(2), 0) // default TTL

	current = current.Add(200 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("short-TTL entry survived past expiry")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("default-TTL entry expired prematurely")
	}
	if c.Stats().Size != 1 {
		t.Errorf("Size = %d, expired entry must be lazily deleted", c.Stats().Size)
	}

	stats := c.Stats()
	if stats.Expirations != 1 {
		t.Errorf("Expirations = %d, want 1", stats.Expirations)
	}
	if stats.Evictions != 0 {
		t.Errorf("Evictions = %d, TTL expiry must not count as capacity eviction", stats.Evictions)
	}
}
