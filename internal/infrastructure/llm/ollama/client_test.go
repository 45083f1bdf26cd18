package ollama

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeneratorSendsPromptAndTrimsResponse(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"  two variants\n"}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	got, err := gen.Generate(context.Background(), "rewrite this query")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "two variants" {
		t.Errorf("Generate() = %q, want trimmed response", got)
	}
	if !strings.Contains(capturedPrompt, "rewrite this query") {
		t.Errorf("prompt not forwarded: %q", capturedPrompt)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestComparatorBatchesQueryWithTexts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(payload.Input) != 3 {
			t.Fatalf("batch size = %d, want query plus two texts", len(payload.Input))
		}
		// Query aligned with text one, orthogonal to text two.
		_, _ = w.Write([]byte(`{"embeddings":[[1,0],[1,0],[0,1]]}`))
	}))
	defer server.Close()

	comparator := NewComparator(NewEmbedder(New(server.URL, "gen", "embed")))
	sims, err := comparator.Compare(context.Background(), "query", []string{"same", "different"})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if len(sims) != 2 {
		t.Fatalf("len(sims) = %d, want 2", len(sims))
	}
	if math.Abs(sims[0]-1.0) > 1e-9 {
		t.Errorf("sims[0] = %f, want 1.0", sims[0])
	}
	if sims[1] != 0.0 {
		t.Errorf("sims[1] = %f, want 0.0", sims[1])
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,0]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected mismatch error")
	}
}
