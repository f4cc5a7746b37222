package textsplitter

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const tokenEncoding = "cl100k_base"

// tokenSplitter cuts windows measured in model tokens rather than runes.
type tokenSplitter struct {
	enc          *tiktoken.Tiktoken
	chunkSize    int
	chunkOverlap int
}

func newTokenSplitter(chunkSize, chunkOverlap int) (*tokenSplitter, error) {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("load token encoding failed, err: %w", err)
	}
	return &tokenSplitter{enc: enc, chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

func (s *tokenSplitter) GetProviderType() string { return "token" }

func (s *tokenSplitter) SplitText(text string) ([]string, error) {
	tokens := s.enc.Encode(text, nil, nil)
	n := len(tokens)
	var chunks []string
	start := 0
	for start < n {
		end := start + s.chunkSize
		if end > n {
			end = n
		}
		chunk := strings.TrimSpace(s.enc.Decode(tokens[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		next := end - s.chunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks, nil
}
