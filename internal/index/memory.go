package index

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/onboard/internal/domain"
)

// MemoryIndex keeps onboarding sessions in process memory.
// It is the session store when no Redis is configured.
type MemoryIndex struct {
	mu        sync.RWMutex
	sessions  map[string]*domain.Session // ID -> Session
	lastSweep time.Time                  // Timestamp of last expiry sweep
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		sessions: make(map[string]*domain.Session),
	}
}

// Save stores a copy of the session, replacing any previous version
func (idx *MemoryIndex) Save(_ context.Context, session *domain.Session) error {
	cp := *session

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.sessions[session.ID] = &cp
	return nil
}

// Get returns a copy of the session with the given ID
func (idx *MemoryIndex) Get(_ context.Context, id string) (*domain.Session, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	session, ok := idx.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

// Delete removes a session. Unknown IDs are ignored.
func (idx *MemoryIndex) Delete(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.sessions, id)
	return nil
}

// Ping always succeeds
func (idx *MemoryIndex) Ping(context.Context) error {
	return nil
}

// Mode names the backing store for status endpoints
func (idx *MemoryIndex) Mode() string {
	return "memory"
}

// All returns copies of every stored session
func (idx *MemoryIndex) All() []*domain.Session {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	sessions := make([]*domain.Session, 0, len(idx.sessions))
	for _, s := range idx.sessions {
		cp := *s
		sessions = append(sessions, &cp)
	}
	return sessions
}

// Count returns the number of stored sessions
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.sessions)
}

// RemoveExpired deletes sessions idle for longer than ttl and returns their IDs
func (idx *MemoryIndex) RemoveExpired(now time.Time, ttl time.Duration) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var removed []string
	for id, s := range idx.sessions {
		if s.Expired(now, ttl) {
			delete(idx.sessions, id)
			removed = append(removed, id)
		}
	}
	idx.lastSweep = now
	return removed
}

// GetLastSweep returns the time of the last expiry sweep
func (idx *MemoryIndex) GetLastSweep() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.lastSweep
}
