package textsplitter

import "strings"

// SentenceSplitter cuts fixed-size windows and pulls each cut back to the
// nearest sentence boundary so chunks end on complete sentences when one
// is close enough. Sizes are in runes.
type SentenceSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// boundaryWindow limits how far back from the window end the splitter
// will look for a sentence boundary.
const boundaryWindow = 200

func (s *SentenceSplitter) GetProviderType() string { return "sentence" }

func (s *SentenceSplitter) SplitText(text string) ([]string, error) {
	runes := []rune(text)
	n := len(runes)
	var chunks []string
	start := 0
	for start < n {
		end := start + s.ChunkSize
		if end > n {
			end = n
		} else {
			end = s.adjustToBoundary(runes, start, end)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		// overlap the next window, but always advance
		next := end - s.ChunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks, nil
}

// adjustToBoundary scans backwards from end for a sentence terminator
// followed by whitespace, or failing that a newline, without retreating
// past the boundary window or the middle of the chunk.
func (s *SentenceSplitter) adjustToBoundary(runes []rune, start, end int) int {
	limit := start + s.ChunkSize/2
	if floor := end - boundaryWindow; floor > limit {
		limit = floor
	}
	for i := end - 1; i > limit; i-- {
		if isSentenceEnd(runes[i]) && i+1 < len(runes) && isSpace(runes[i+1]) {
			return i + 1
		}
	}
	for i := end - 1; i > limit; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
