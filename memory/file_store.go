package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session ids become file names, so anything that could escape the
// conversations directory is rejected. ".." is unreachable because ids
// must start with an alphanumeric.
var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validSessionID(id string) bool {
	return sessionIDRe.MatchString(id)
}

// FileStore persists each session as one JSON file under dir. Sessions
// are loaded lazily, rewritten after every turn, and expired by idle
// time both in memory and on disk.
type FileStore struct {
	mu       sync.Mutex
	dir      string
	cache    map[string]*Session
	maxTurns int
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewFileStore builds a file-backed store rooted at dir.
func NewFileStore(dir string, maxTurns int, ttl time.Duration, log *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("conversations directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversations directory failed, err: %w", err)
	}
	if maxTurns <= 0 {
		maxTurns = 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{
		dir:      dir,
		cache:    make(map[string]*Session),
		maxTurns: maxTurns,
		ttl:      ttl,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func (f *FileStore) GetOrCreate(id string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.lookup(id); s != nil {
		return s, nil
	}
	if !validSessionID(id) {
		id = ""
	}
	s := NewSession(id)
	f.cache[s.ID] = s
	if err := f.write(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (f *FileStore) Get(id string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.lookup(id); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("session %s not found", id)
}

// lookup finds a live session in cache or on disk; expired sessions are
// removed and reported as missing.
func (f *FileStore) lookup(id string) *Session {
	if !validSessionID(id) {
		return nil
	}
	s, ok := f.cache[id]
	if !ok {
		data, err := os.ReadFile(f.path(id))
		if err != nil {
			return nil
		}
		loaded, err := ImportSession(data)
		if err != nil {
			f.log.Warn("corrupt session file ignored", zap.String("session", id), zap.Error(err))
			return nil
		}
		s = loaded
		f.cache[id] = s
	}
	if f.expired(s) {
		delete(f.cache, id)
		_ = os.Remove(f.path(id))
		return nil
	}
	return s
}

func (f *FileStore) AddTurn(id, role, content string, metadata map[string]interface{}) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.lookup(id)
	if s == nil {
		if !validSessionID(id) {
			id = ""
		}
		s = NewSession(id)
		f.cache[s.ID] = s
	}
	s.addTurn(role, content, metadata, f.maxTurns)
	if err := f.write(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (f *FileStore) Save(s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("cannot save session without id")
	}
	if !validSessionID(s.ID) {
		return fmt.Errorf("invalid session id %q", s.ID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[s.ID] = s
	return f.write(s)
}

func (f *FileStore) Delete(id string) error {
	if !validSessionID(id) {
		return fmt.Errorf("invalid session id %q", id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, id)
	if err := os.Remove(f.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session file failed, err: %w", err)
	}
	return nil
}

func (f *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list conversations failed, err: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	return ids, nil
}

func (f *FileStore) Clean() int {
	ids, err := f.List()
	if err != nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	dropped := 0
	for _, id := range ids {
		if f.lookup(id) != nil {
			continue
		}
		// Expired sessions already removed their file inside lookup;
		// anything still on disk is unreadable and goes with them.
		if err := os.Remove(f.path(id)); err != nil && !os.IsNotExist(err) {
			continue
		}
		dropped++
	}
	return dropped
}

func (f *FileStore) expired(s *Session) bool {
	return f.ttl > 0 && f.now().Sub(s.LastActivity) > f.ttl
}

func (f *FileStore) write(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session failed, err: %w", err)
	}
	tmp := f.path(s.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session file failed, err: %w", err)
	}
	if err := os.Rename(tmp, f.path(s.ID)); err != nil {
		return fmt.Errorf("replace session file failed, err: %w", err)
	}
	return nil
}
