// Package clarify builds clarifying questions from a template bank and
// validates them before they reach the user.
package clarify

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
)

// Type classifies why a query needs clarification.
type Type string

const (
	TypeInsufficientInfo Type = "insufficient_information"
	TypeMultipleTopics   Type = "multiple_topics"
	TypeAmbiguousContext Type = "ambiguous_context"
	TypeVagueQuery       Type = "vague_query"
)

// Fallback is used whenever a generated question fails the quality check.
const Fallback = "I want to help you find the right information. Could you try asking your question in a different way, or let me know what specific problem you're trying to solve?"

// SelectType picks the clarification type from the retrieval outcome and
// query analysis, most specific condition first.
func SelectType(docCount int, clarity string) Type {
	switch {
	case docCount == 0:
		return TypeInsufficientInfo
	case docCount > 3:
		return TypeMultipleTopics
	case strings.EqualFold(clarity, "CONTEXTUAL"):
		return TypeAmbiguousContext
	default:
		return TypeVagueQuery
	}
}

var templates = map[Type][]string{
	TypeInsufficientInfo: {
		"I couldn't find specific information about '%s' in the available documents. Could you rephrase your question or ask about a related topic instead?",
		"The documents I have access to don't seem to cover '%s' directly. Could you tell me which specific aspect you are trying to understand?",
		"I don't have enough information about '%s' to help yet. Could you provide more details about what you are looking for?",
	},
	TypeMultipleTopics: {
		"Your question about '%s' touches on several different topics. Which of these would help you most: %s?",
		"I found information on multiple subjects related to '%s'. Would you like me to focus on %s, or something else?",
	},
	TypeAmbiguousContext: {
		"Your question seems to refer to our earlier conversation. Could you clarify which part of it you would like me to expand on?",
		"I want to make sure I understand the context correctly. Are you asking about something we discussed earlier, or is this a new topic?",
	},
	TypeVagueQuery: {
		"Could you be more specific about what you would like to know regarding '%s'? For example, are you looking for a definition, instructions, or an explanation?",
		"Your question is quite broad. Which specific aspect of '%s' would help you most: a general overview, or details on a particular part?",
	},
}

// Input carries what the generator needs for one question.
type Input struct {
	Query string
	Type  Type
	// Topics are the candidate subjects for multiple-choice questions.
	Topics []string
}

// Generate produces a clarifying question. Template choice is a stable
// hash of the query so repeated runs ask the same thing. Questions that
// fail the quality check are replaced by Fallback.
func Generate(in Input) string {
	bank, ok := templates[in.Type]
	if !ok || len(bank) == 0 {
		return Fallback
	}
	tpl := bank[hashIndex(in.Query, len(bank))]
	var question string
	if in.Type == TypeMultipleTopics {
		topics := in.Topics
		if len(topics) == 0 {
			topics = []string{"one of the available topics"}
		}
		question = fmt.Sprintf(tpl, in.Query, joinTopics(topics))
	} else if strings.Contains(tpl, "%s") {
		question = fmt.Sprintf(tpl, in.Query)
	} else {
		question = tpl
	}
	if !PassesQuality(question) {
		return Fallback
	}
	return question
}

// TopicsFromSources converts source file names into human-readable topic
// labels, deduplicated, capped at max.
func TopicsFromSources(sources []string, max int) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, src := range sources {
		name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		name = strings.ReplaceAll(name, "_", " ")
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		topics = append(topics, name)
		if max > 0 && len(topics) >= max {
			break
		}
	}
	return topics
}

func joinTopics(topics []string) string {
	switch len(topics) {
	case 0:
		return ""
	case 1:
		return topics[0]
	case 2:
		return topics[0] + " or " + topics[1]
	default:
		return strings.Join(topics[:len(topics)-1], ", ") + ", or " + topics[len(topics)-1]
	}
}

// Quality criteria: a good clarifying question is an actual question,
// reasonably specific, offers direction, sounds helpful, and is neither
// terse nor rambling. Three of five passes.
func PassesQuality(question string) bool {
	words := strings.Fields(question)
	score := 0
	if strings.Contains(question, "?") {
		score++
	}
	if len(words) > 10 {
		score++
	}
	lower := strings.ToLower(question)
	if containsAny(lower, "or", "either", "which", "option") {
		score++
	}
	if containsAny(lower, "help", "assist", "clarify", "understand") {
		score++
	}
	if len(words) >= 20 && len(words) <= 50 {
		score++
	}
	return float64(score)/5.0 >= 0.6
}

func containsAny(s string, words ...string) bool {
	padded := " " + strings.NewReplacer(",", " ", ".", " ", "?", " ", "'", " ").Replace(s) + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}

func hashIndex(s string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(n))
}
