package llm

import (
	"regexp"
	"strings"
)

// Reasoning models wrap their chain of thought in think tags and sometimes
// leave the tag unclosed when truncated.
var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)
	thinkOpenRe  = regexp.MustCompile(`(?s)<think(?:ing)?>.*$`)
	answerMarker = "Answer:"
)

// minCleanedLen guards against stripping a response down to nothing when
// the model put its whole answer inside a think block.
const minCleanedLen = 10

// CleanResponse removes reasoning markup from a raw model response. Closed
// think blocks are dropped, an unclosed trailing block is cut, and an
// explicit "Answer:" marker wins when present. When cleaning would leave
// too little content the trimmed raw text is returned instead.
func CleanResponse(raw string) string {
	cleaned := thinkBlockRe.ReplaceAllString(raw, "")
	cleaned = thinkOpenRe.ReplaceAllString(cleaned, "")
	if idx := strings.LastIndex(cleaned, answerMarker); idx >= 0 {
		cleaned = cleaned[idx+len(answerMarker):]
	}
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) < minCleanedLen {
		if fallback := strings.TrimSpace(raw); fallback != "" {
			return fallback
		}
	}
	return cleaned
}
