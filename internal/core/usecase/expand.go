package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
	"github.com/kirillkom/knowledge-retriever/internal/core/ports"
)

// minVariantRunes discards degenerate paraphrases from line-based parsing.
const minVariantRunes = 5

// QueryExpander produces paraphrased variants of a query via the injected
// language model. Expansion failure is never fatal: any call or parse problem
// yields the original query alone.
type QueryExpander struct {
	llm         ports.LanguageModel
	maxVariants int
	timeout     time.Duration
}

func NewQueryExpander(llm ports.LanguageModel, maxVariants int, timeout time.Duration) *QueryExpander {
	if maxVariants < 0 {
		maxVariants = 0
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QueryExpander{llm: llm, maxVariants: maxVariants, timeout: timeout}
}

// Expand returns the query followed by up to maxVariants paraphrases.
func (e *QueryExpander) Expand(ctx context.Context, query string, history []domain.ConversationTurn) []string {
	query = strings.TrimSpace(query)
	out := []string{query}
	if e.llm == nil || e.maxVariants == 0 || query == "" {
		return out
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.llm.Generate(callCtx, buildExpansionPrompt(query, history, e.maxVariants))
	if err != nil {
		slog.Warn("query_expansion_failed", "error", err)
		return out
	}

	variants := parseVariants(raw, query)
	if len(variants) > e.maxVariants {
		variants = variants[:e.maxVariants]
	}
	return append(out, variants...)
}

func buildExpansionPrompt(query string, history []domain.ConversationTurn, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite the user question as %d alternative search queries.\n", count)
	b.WriteString("Keep the language of the original question. Return a JSON array of strings, nothing else.\n")

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	fmt.Fprintf(&b, "\nQuestion:\n%s\n", query)
	return b.String()
}

// parseVariants tries, in order: a fenced json block, a direct JSON array,
// then a numbered/bulleted line heuristic.
func parseVariants(raw, original string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if block := extractFencedBlock(raw); block != "" {
		if variants := parseJSONVariants(block, original); variants != nil {
			return variants
		}
	}
	if variants := parseJSONVariants(raw, original); variants != nil {
		return variants
	}
	return parseLineVariants(raw, original)
}

func extractFencedBlock(raw string) string {
	start := strings.Index(raw, "```")
	if start < 0 {
		return ""
	}
	rest := raw[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && len(strings.TrimSpace(rest[:nl])) <= 8 {
		// Drop the language tag line (e.g. "json").
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

func parseJSONVariants(raw, original string) []string {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil
	}

	var parsed []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil
	}
	return cleanVariants(parsed, original)
}

func parseLineVariants(raw, original string) []string {
	lines := strings.Split(raw, "\n")
	listItems := make([]string, 0, len(lines))
	bare := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		trimmed := strings.TrimLeft(line, "0123456789.)- *•\t")
		if trimmed != line {
			listItems = append(listItems, trimmed)
			continue
		}
		bare = append(bare, line)
	}
	if len(listItems) > 0 {
		return cleanVariants(listItems, original)
	}
	// The model answered without any list formatting; take each line as a
	// candidate variant.
	return cleanVariants(bare, original)
}

func cleanVariants(candidates []string, original string) []string {
	out := make([]string, 0, len(candidates))
	seen := map[string]struct{}{strings.ToLower(strings.TrimSpace(original)): {}}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(strings.Trim(candidate, `"`))
		if len([]rune(candidate)) < minVariantRunes {
			continue
		}
		key := strings.ToLower(candidate)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
