package textsplitter

import (
	"strings"
	"testing"

	"github.com/ragstack/ragchat/config"
)

func TestSentenceSplitterShortTextSingleChunk(t *testing.T) {
	s := &SentenceSplitter{ChunkSize: 100, ChunkOverlap: 20}
	chunks, err := s.SplitText("A short document.")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "A short document." {
		t.Errorf("unexpected chunks: %q", chunks)
	}
}

func TestSentenceSplitterPrefersSentenceBoundary(t *testing.T) {
	s := &SentenceSplitter{ChunkSize: 50, ChunkOverlap: 10}
	text := "First sentence ends here. Second sentence is much longer and keeps going past the window."
	chunks, err := s.SplitText(text)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %q", chunks)
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("first chunk should end at a sentence boundary, got %q", chunks[0])
	}
}

func TestSentenceSplitterOverlap(t *testing.T) {
	s := &SentenceSplitter{ChunkSize: 40, ChunkOverlap: 15}
	text := strings.Repeat("alpha beta gamma delta. ", 20)
	chunks, err := s.SplitText(text)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks")
	}
	// consecutive chunks share text because windows overlap
	tail := chunks[0][len(chunks[0])-5:]
	if !strings.Contains(chunks[1], tail) && !strings.Contains(text, chunks[1]) {
		t.Errorf("second chunk should overlap or continue the first")
	}
}

func TestSentenceSplitterTerminatesWithoutBoundaries(t *testing.T) {
	s := &SentenceSplitter{ChunkSize: 30, ChunkOverlap: 29}
	// no sentence boundaries, maximal overlap: the splitter must still
	// advance at least one rune per iteration
	text := strings.Repeat("x", 200)
	chunks, err := s.SplitText(text)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatalf("expected chunks from non-empty input")
	}
	for i, c := range chunks {
		if c == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSentenceSplitterWhitespaceOnly(t *testing.T) {
	s := &SentenceSplitter{ChunkSize: 10, ChunkOverlap: 2}
	chunks, err := s.SplitText("   \n\t  \n   ")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("whitespace input should yield no chunks, got %q", chunks)
	}
}

func TestSentenceSplitterUnicode(t *testing.T) {
	s := &SentenceSplitter{ChunkSize: 10, ChunkOverlap: 2}
	text := strings.Repeat("héllo wörld. ", 10)
	chunks, err := s.SplitText(text)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	for _, c := range chunks {
		if !strings.Contains(text, c) {
			t.Errorf("chunk %q is not a substring; rune boundary broken", c)
		}
	}
}

func TestNewSplitterValidation(t *testing.T) {
	if _, err := NewSplitter(config.SplitterConfig{Provider: "sentence", ChunkSize: 0}); err == nil {
		t.Errorf("zero chunk size should fail")
	}
	if _, err := NewSplitter(config.SplitterConfig{Provider: "sentence", ChunkSize: 10, ChunkOverlap: 10}); err == nil {
		t.Errorf("overlap == size should fail")
	}
	if _, err := NewSplitter(config.SplitterConfig{Provider: "markdown", ChunkSize: 10}); err == nil {
		t.Errorf("unknown provider should fail")
	}
	s, err := NewSplitter(config.SplitterConfig{Provider: "sentence", ChunkSize: 10, ChunkOverlap: 2})
	if err != nil || s.GetProviderType() != "sentence" {
		t.Errorf("sentence splitter construction failed: %v", err)
	}
}
