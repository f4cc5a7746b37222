package agent

import (
	"fmt"
	"strings"

	"github.com/ragstack/ragchat/schema"
)

// systemPrompt frames every answer-generating call.
const systemPrompt = `You are a helpful assistant that answers questions using the provided document excerpts.
Ground every claim in the excerpts; when they do not contain the answer, say so instead of guessing.
Answer concisely and in the same language as the question.`

const analysisPrompt = `Analyze the following user query and answer in exactly this format, one field per line:

INTENT: <one of: factual_question, how_to_question, general_question, comparison, troubleshooting>
CLARITY: <one of: CLEAR, AMBIGUOUS, CONTEXTUAL>
CONTEXT_NEEDED: <YES or NO - does answering require the earlier conversation?>
KEY_TERMS: <comma-separated search terms extracted from the query>
SEARCH_STRATEGY: <one of: direct, expanded, contextual>

Conversation so far:
%s

Query: %s`

const clarifyCheckPrompt = `A user asked: %s

The retrieved documents cover: %s

Would a clarifying question serve the user better than an answer from these documents?
Reply in exactly this format:

NEEDS_CLARIFICATION: <YES or NO>`

const intentPrompt = `Classify the intent of the user message into exactly one category:
- "rag": a question answerable from the indexed documents
- "sql": a question about structured data, counts, totals or records
- "general": greetings, chit-chat, or anything needing no lookup
- "clarification": the user is asking you to clarify or rephrase

Reply with JSON only: {"intent": "<category>", "confidence": <0.0-1.0>}

Message: %s`

func buildClarifyCheckPrompt(query, topics string) string {
	if topics == "" {
		topics = "(no identifiable topics)"
	}
	return fmt.Sprintf(clarifyCheckPrompt, query, topics)
}

// buildAnalysisPrompt renders the analysis request. An empty context is
// shown as such so the model does not invent one.
func buildAnalysisPrompt(query, contextWindow string) string {
	if contextWindow == "" {
		contextWindow = "(no prior conversation)"
	}
	return fmt.Sprintf(analysisPrompt, contextWindow, query)
}

// buildResponsePrompt renders the final answer request from the query,
// conversation window and top document excerpts.
func buildResponsePrompt(query, contextWindow string, docs []schema.SearchResult) string {
	var b strings.Builder
	if contextWindow != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(contextWindow)
		b.WriteString("\n\n")
	}
	b.WriteString("Document excerpts:\n")
	for i, r := range docs {
		if i >= maxContextDocs {
			break
		}
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, r.Document.Source(), r.Document.Content)
	}
	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}
