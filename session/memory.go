package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps values in process memory. It is used by tests and by
// callers that never cross a process boundary.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Snapshot returns a copy of the stored values.
func (m *MemoryStore) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// MemoryManager hands out one MemoryStore per browser, identified by an id
// cookie. It only works for a single server process.
type MemoryManager struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	opts     RedisOptions
	now      func() time.Time
}

type memoryEntry struct {
	store   *MemoryStore
	expires time.Time
}

// NewMemoryManager creates a manager. Only TTL, CookieName, Domain and
// Secure are used from opts.
func NewMemoryManager(opts RedisOptions) *MemoryManager {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultSessionIDCookie
	}
	return &MemoryManager{sessions: make(map[string]*memoryEntry), opts: opts, now: time.Now}
}

// Open returns the store for the id in the request cookie, or a new one.
func (m *MemoryManager) Open(w http.ResponseWriter, r *http.Request) (Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.sessions {
		if now.After(e.expires) {
			delete(m.sessions, id)
		}
	}

	if c, err := r.Cookie(m.opts.CookieName); err == nil {
		if e, ok := m.sessions[c.Value]; ok {
			return e.store, nil
		}
	}

	id := uuid.NewString()
	e := &memoryEntry{store: NewMemoryStore(), expires: now.Add(m.opts.TTL)}
	m.sessions[id] = e
	http.SetCookie(w, sessionIDCookie(m.opts, id))
	return e.store, nil
}

// Len returns the number of live sessions.
func (m *MemoryManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
