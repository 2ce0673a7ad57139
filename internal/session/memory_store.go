package session

import (
	"context"
	"sync"
	"time"

	"github.com/exitguard/exitguard/internal/syncutil"
)

// Default lifetimes. A session with no batch for TTL is evicted; converted
// sessions stick around longer so the dashboard can show recent wins.
const (
	DefaultTTL                = 5 * time.Minute
	DefaultConvertedRetention = time.Hour
	maxStoredEventsPerSession = 200
)

// MemoryStore is the in-process Store: a mutex-guarded map with copy-on-write
// sessions plus a sharded per-id lock that serializes same-session updates.
// Readers only ever see fully merged snapshots.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	locks syncutil.ShardedMutex

	ttl       time.Duration
	retention time.Duration
}

// NewMemoryStore creates a memory store with default lifetimes.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*Session),
		ttl:       DefaultTTL,
		retention: DefaultConvertedRetention,
	}
}

// WithTTL overrides the inactivity timeout.
func (m *MemoryStore) WithTTL(ttl time.Duration) *MemoryStore {
	m.ttl = ttl
	return m
}

// WithConvertedRetention overrides how long converted sessions are retained.
func (m *MemoryStore) WithConvertedRetention(d time.Duration) *MemoryStore {
	m.retention = d
	return m
}

// Update implements Store. The per-id lock is held across the whole
// read-modify-publish cycle, so two concurrent batches for one session never
// interleave their merges. The map entry is replaced, never mutated in place.
func (m *MemoryStore) Update(ctx context.Context, id string, now time.Time, fn func(*Session) error) (*Session, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	m.mu.RLock()
	cur := m.sessions[id]
	m.mu.RUnlock()

	var working *Session
	if cur == nil {
		working = &Session{
			ID:           id,
			StartedAt:    now,
			Mood:         "neutral",
			Zone:         "green",
			DeciderState: StateIdle,
			Outcome:      OutcomeNone,
		}
	} else {
		working = cur.Clone()
	}
	working.LastSeen = now

	if err := fn(working); err != nil {
		return nil, err
	}

	// Bound the raw event tail
	if len(working.Events) > maxStoredEventsPerSession {
		working.Events = working.Events[len(working.Events)-maxStoredEventsPerSession:]
	}

	m.mu.Lock()
	m.sessions[id] = working
	m.mu.Unlock()

	return working.Clone(), nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s == nil {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// ListActive implements Store.
func (m *MemoryStore) ListActive(ctx context.Context, now time.Time) ([]*Session, error) {
	cutoff := now.Add(-m.ttl)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.LastSeen.After(cutoff) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// ExpireStale implements Store. Each eviction takes the session's own lock,
// so an in-flight update and the sweep never corrupt state; a batch that
// lands between the staleness check and the delete simply wins and the
// session survives this sweep.
func (m *MemoryStore) ExpireStale(ctx context.Context, now time.Time) []*Session {
	m.mu.RLock()
	candidates := make([]string, 0)
	for id, s := range m.sessions {
		if m.isStale(s, now) {
			candidates = append(candidates, id)
		}
	}
	m.mu.RUnlock()

	var evicted []*Session
	for _, id := range candidates {
		unlock := m.locks.Lock(id)

		m.mu.Lock()
		s := m.sessions[id]
		if s != nil && m.isStale(s, now) {
			delete(m.sessions, id)
			evicted = append(evicted, s.Clone())
		}
		m.mu.Unlock()

		unlock()
	}
	return evicted
}

func (m *MemoryStore) isStale(s *Session, now time.Time) bool {
	deadline := s.LastSeen.Add(m.ttl)
	if s.Outcome == OutcomeConverted && s.ConvertedAt != nil {
		if d := s.ConvertedAt.Add(m.retention); d.After(deadline) {
			deadline = d
		}
	}
	return now.After(deadline)
}

// Len implements Store.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
