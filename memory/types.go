// Package memory holds per-session conversation history with optional
// file persistence and idle expiry.
package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// contextWindowTurns is how many recent turns feed the retrieval context.
const contextWindowTurns = 6

// Turn is one message in a conversation. Turns are immutable once added.
type Turn struct {
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Stats aggregates per-session counters.
type Stats struct {
	TotalMessages     int            `json:"total_messages"`
	UserMessages      int            `json:"user_messages"`
	AssistantMessages int            `json:"assistant_messages"`
	Intents           map[string]int `json:"intents,omitempty"`
}

// Session is one conversation.
type Session struct {
	ID           string            `json:"session_id"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	Turns        []Turn            `json:"history"`
	Context      map[string]string `json:"context_memory"`
	Stats        Stats             `json:"stats"`
}

// NewSession creates an empty session. An empty id gets a fresh UUID.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		Context:      make(map[string]string),
		Stats:        Stats{Intents: make(map[string]int)},
	}
}

// addTurn appends a turn and trims history to the most recent maxTurns
// exchanges (twice maxTurns individual messages).
func (s *Session) addTurn(role, content string, metadata map[string]interface{}, maxTurns int) {
	now := time.Now().UTC()
	s.Turns = append(s.Turns, Turn{Role: role, Content: content, Timestamp: now, Metadata: metadata})
	if max := maxTurns * 2; max > 0 && len(s.Turns) > max {
		s.Turns = s.Turns[len(s.Turns)-max:]
	}
	s.LastActivity = now
	s.Stats.TotalMessages++
	switch role {
	case RoleUser:
		s.Stats.UserMessages++
	case RoleAssistant:
		s.Stats.AssistantMessages++
	}
	if metadata != nil {
		if intent, ok := metadata["intent"].(string); ok && intent != "" {
			if s.Stats.Intents == nil {
				s.Stats.Intents = make(map[string]int)
			}
			s.Stats.Intents[intent]++
		}
	}
}

// ContextWindow renders the most recent turns as "ROLE: content" lines for
// prompt construction. Empty when the session has no history.
func (s *Session) ContextWindow() string {
	turns := s.Turns
	if len(turns) > contextWindowTurns {
		turns = turns[len(turns)-contextWindowTurns:]
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(t.Role), t.Content))
	}
	return strings.Join(lines, "\n")
}

var followUpPhrases = []string{
	"also", "additionally", "furthermore", "moreover", "besides",
	"what about", "how about", "can you also", "tell me more",
	"explain further", "elaborate", "continue", "more details",
}

var followUpPronouns = []string{"it", "this", "that", "they", "them", "these", "those"}

// IsFollowUp reports whether the query depends on earlier turns, either by
// an explicit continuation phrase or by a bare pronoun reference. A
// session with no history never has follow-ups.
func (s *Session) IsFollowUp(query string) bool {
	if len(s.Turns) == 0 {
		return false
	}
	q := strings.ToLower(query)
	for _, p := range followUpPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	padded := " " + q + " "
	for _, p := range followUpPronouns {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// RecentUserQueries returns up to n of the latest user turns, oldest
// first.
func (s *Session) RecentUserQueries(n int) []string {
	var queries []string
	for i := len(s.Turns) - 1; i >= 0 && len(queries) < n; i-- {
		if s.Turns[i].Role == RoleUser {
			queries = append(queries, s.Turns[i].Content)
		}
	}
	for i, j := 0, len(queries)-1; i < j; i, j = i+1, j-1 {
		queries[i], queries[j] = queries[j], queries[i]
	}
	return queries
}

// Summary describes the session in one line.
func (s *Session) Summary() string {
	if len(s.Turns) == 0 {
		return "No conversation yet."
	}
	return fmt.Sprintf("%d messages (%d from you) since %s",
		s.Stats.TotalMessages, s.Stats.UserMessages, s.CreatedAt.Format("2006-01-02 15:04"))
}

// Clear wipes history and context and assigns a fresh session id.
func (s *Session) Clear() {
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().UTC()
	s.LastActivity = s.CreatedAt
	s.Turns = nil
	s.Context = make(map[string]string)
	s.Stats = Stats{Intents: make(map[string]int)}
}

// Export serializes the session for backup or transfer.
func (s *Session) Export() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export session failed, err: %w", err)
	}
	return data, nil
}

// ImportSession parses a previously exported session.
func ImportSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("import session failed, err: %w", err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("imported session has no id")
	}
	if s.Context == nil {
		s.Context = make(map[string]string)
	}
	return &s, nil
}
