package memory

import (
	"fmt"
	"sync"
	"time"
)

// Store manages sessions. AddTurn is the only mutation path for history;
// callers must not modify a returned session's Turns directly.
type Store interface {
	GetOrCreate(id string) (*Session, error)
	Get(id string) (*Session, error)
	AddTurn(id, role, content string, metadata map[string]interface{}) (*Session, error)
	Save(s *Session) error
	Delete(id string) error
	List() ([]string, error)
	// Clean removes sessions idle longer than the store's TTL and returns
	// how many were dropped.
	Clean() int
}

// MemStore keeps sessions in memory only.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxTurns int
	ttl      time.Duration
	now      func() time.Time
}

// NewMemStore builds an in-memory store. ttl <= 0 disables expiry.
func NewMemStore(maxTurns int, ttl time.Duration) *MemStore {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &MemStore{
		sessions: make(map[string]*Session),
		maxTurns: maxTurns,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemStore) GetOrCreate(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok && !m.expired(s) {
		return s, nil
	}
	s := NewSession(id)
	m.sessions[s.ID] = s
	return s, nil
}

func (m *MemStore) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return s, nil
}

func (m *MemStore) AddTurn(id, role, content string, metadata map[string]interface{}) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = NewSession(id)
		m.sessions[s.ID] = s
	}
	s.addTurn(role, content, metadata, m.maxTurns)
	return s, nil
}

func (m *MemStore) Save(s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("cannot save session without id")
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Delete(id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MemStore) Clean() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			dropped++
		}
	}
	return dropped
}

func (m *MemStore) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.LastActivity) > m.ttl
}
