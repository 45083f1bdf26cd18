package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

type llmFake struct {
	response string
	err      error
	prompt   string
}

func (f *llmFake) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestExpandParsesFencedJSONBlock(t *testing.T) {
	llm := &llmFake{response: "Here you go:\n```json\n[\"세무 신고 절차 안내\", \"종합소득세 신고 방법\"]\n```"}
	expander := NewQueryExpander(llm, 3, time.Second)

	variants := expander.Expand(context.Background(), "세무 신고 방법", nil)
	if len(variants) != 3 {
		t.Fatalf("expected original + 2 variants, got %v", variants)
	}
	if variants[0] != "세무 신고 방법" {
		t.Fatalf("original query must come first, got %q", variants[0])
	}
	if variants[1] != "세무 신고 절차 안내" {
		t.Fatalf("unexpected first variant %q", variants[1])
	}
}

func TestExpandParsesBareJSONArray(t *testing.T) {
	llm := &llmFake{response: `["how to file corporate tax", "corporate tax filing steps"]`}
	expander := NewQueryExpander(llm, 2, time.Second)

	variants := expander.Expand(context.Background(), "corporate tax filing", nil)
	if len(variants) != 3 {
		t.Fatalf("expected 3 entries, got %v", variants)
	}
}

func TestExpandFallsBackToLineHeuristic(t *testing.T) {
	llm := &llmFake{response: "Sure, here are rewrites:\n1. 세무 신고 기한 확인\n2. 세무 신고 방법\n3. ok\n- 개인사업자 신고 절차"}
	expander := NewQueryExpander(llm, 5, time.Second)

	variants := expander.Expand(context.Background(), "세무 신고 방법", nil)
	// "세무 신고 방법" repeats the query, "ok" is below the length floor.
	if len(variants) != 3 {
		t.Fatalf("expected original + 2 variants, got %v", variants)
	}
	if variants[1] != "세무 신고 기한 확인" || variants[2] != "개인사업자 신고 절차" {
		t.Fatalf("unexpected variants %v", variants)
	}
}

func TestExpandCapsVariantCount(t *testing.T) {
	llm := &llmFake{response: `["variant one here", "variant two here", "variant three here", "variant four here"]`}
	expander := NewQueryExpander(llm, 2, time.Second)

	variants := expander.Expand(context.Background(), "some question", nil)
	if len(variants) != 3 {
		t.Fatalf("expected original + 2 capped variants, got %v", variants)
	}
}

func TestExpandFailureReturnsOriginalOnly(t *testing.T) {
	expander := NewQueryExpander(&llmFake{err: errors.New("model offline")}, 3, time.Second)
	variants := expander.Expand(context.Background(), "세무 신고 방법", nil)
	if len(variants) != 1 || variants[0] != "세무 신고 방법" {
		t.Fatalf("call failure must degrade to the original query, got %v", variants)
	}

	expander = NewQueryExpander(&llmFake{response: "I cannot help with that."}, 3, time.Second)
	variants = expander.Expand(context.Background(), "세무 신고 방법", nil)
	if len(variants) != 1 {
		t.Fatalf("unparseable output must degrade to the original query, got %v", variants)
	}
}

func TestExpandIncludesHistoryInPrompt(t *testing.T) {
	llm := &llmFake{response: `[]`}
	expander := NewQueryExpander(llm, 2, time.Second)

	history := []domain.ConversationTurn{{Role: "user", Content: "개인사업자인데요"}}
	expander.Expand(context.Background(), "부가세는 언제 내나요", history)
	if !strings.Contains(llm.prompt, "개인사업자인데요") {
		t.Fatalf("expected history in prompt, got %q", llm.prompt)
	}
}

func TestExpandAcceptsUnformattedLines(t *testing.T) {
	llm := &llmFake{response: "세무 신고 기한 확인\n종합소득세 전자 신고 방법\n세무 신고 방법"}
	expander := NewQueryExpander(llm, 3, time.Second)

	variants := expander.Expand(context.Background(), "세무 신고 방법", nil)
	if len(variants) != 3 {
		t.Fatalf("expected original + 2 bare-line variants, got %v", variants)
	}
	if variants[1] != "세무 신고 기한 확인" || variants[2] != "종합소득세 전자 신고 방법" {
		t.Fatalf("unexpected variants %v", variants)
	}
}

func TestExpandIgnoresProseAroundListItems(t *testing.T) {
	llm := &llmFake{response: "Here are some rewrites for you:\n1. 세무 신고 기한 확인\n2. 종합소득세 전자 신고 방법"}
	expander := NewQueryExpander(llm, 3, time.Second)

	variants := expander.Expand(context.Background(), "세무 신고 방법", nil)
	if len(variants) != 3 {
		t.Fatalf("expected original + 2 list variants, got %v", variants)
	}
	for _, v := range variants {
		if strings.Contains(v, "rewrites") {
			t.Fatalf("preamble line leaked into variants: %v", variants)
		}
	}
}
