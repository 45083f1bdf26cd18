package chunking

import (
	"strings"
	"testing"
)

func TestSplitOverlapsConsecutiveChunks(t *testing.T) {
	s := NewSplitter(10, 4)
	chunks := s.Split(strings.Repeat("abcdefghij", 3))

	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want at least 2", len(chunks))
	}
	first := []rune(chunks[0])
	second := []rune(chunks[1])
	tail := string(first[len(first)-4:])
	head := string(second[:4])
	if tail != head {
		t.Errorf("overlap mismatch: %q vs %q", tail, head)
	}
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	s := NewSplitter(5, 0)
	chunks := s.Split("가나다라마바사아자차")

	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if len([]rune(chunks[0])) != 5 {
		t.Errorf("chunk rune length = %d, want 5", len([]rune(chunks[0])))
	}
}

func TestSplitEmptyAndDefaults(t *testing.T) {
	if got := NewSplitter(0, -1).Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}

	s := NewSplitter(0, 0)
	if s.ChunkSize != 900 {
		t.Errorf("default ChunkSize = %d, want 900", s.ChunkSize)
	}

	s = NewSplitter(8, 20)
	if s.Overlap >= s.ChunkSize {
		t.Errorf("overlap %d not reduced below chunk size %d", s.Overlap, s.ChunkSize)
	}
}
