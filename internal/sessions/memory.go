package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/deliotti/tucosto-backend/internal/ledger"
)

const (
	DefaultTTL    = 12 * time.Hour
	sweepInterval = time.Minute
)

type memoryEntry struct {
	rows      []ledger.LineItem
	expiresAt time.Time
}

// MemoryStore keeps ledgers in process memory. Entries expire after a
// sliding TTL and are swept lazily on access.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	entries   map[string]memoryEntry
	lastSweep time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*ledger.Ledger, error) {
	id, err := normalizeID(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(id)
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, l *ledger.Ledger) error {
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(id, l)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Update holds the store lock for the whole load/apply/save cycle.
func (s *MemoryStore) Update(ctx context.Context, sessionID string, fn func(*ledger.Ledger) error) error {
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.loadLocked(id)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.saveLocked(id, l)
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now(), true)
	return len(s.entries)
}

func (s *MemoryStore) loadLocked(id string) (*ledger.Ledger, error) {
	now := s.now()
	s.sweepLocked(now, false)

	entry, ok := s.entries[id]
	if !ok || !now.Before(entry.expiresAt) {
		delete(s.entries, id)
		return ledger.New(), nil
	}
	entry.expiresAt = now.Add(s.ttl)
	s.entries[id] = entry
	return ledger.Restore(entry.rows)
}

func (s *MemoryStore) saveLocked(id string, l *ledger.Ledger) {
	if l == nil || l.Len() == 0 {
		// an empty ledger still marks the session as active
		s.entries[id] = memoryEntry{expiresAt: s.now().Add(s.ttl)}
		return
	}
	s.entries[id] = memoryEntry{rows: l.Rows(), expiresAt: s.now().Add(s.ttl)}
}

func (s *MemoryStore) sweepLocked(now time.Time, force bool) {
	if !force && now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
