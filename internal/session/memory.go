package session

import (
	"context"
	"sync"
	"time"

	"github.com/proxmox-nli/internal/domain"
	"github.com/proxmox-nli/internal/nli"
)

// janitorInterval is how often the memory store sweeps expired sessions.
// Load checks expiry itself, so the sweep only reclaims memory.
const janitorInterval = 5 * time.Minute

// defaultTTL applies when the store is built without a positive TTL.
const defaultTTL = 30 * time.Minute

// MemoryStore keeps sessions in a mutex-guarded map. The default backend
// for the CLI and single-instance deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]memoryItem
	stop  chan struct{}
	once  sync.Once
}

type memoryItem struct {
	data     []byte
	lastSeen time.Time
}

// NewMemoryStore creates an in-memory session store and starts its
// janitor goroutine. Close stops the janitor.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	s := &MemoryStore{
		ttl:   ttl,
		items: make(map[string]memoryItem),
		stop:  make(chan struct{}),
	}

	go s.janitor()

	return s
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, id string) (*nli.ConversationContext, error) {
	s.mu.RLock()
	item, exists := s.items[id]
	s.mu.RUnlock()

	if !exists || time.Since(item.lastSeen) > s.ttl {
		return nil, domain.ErrSessionNotFound
	}

	return decodeContext(item.data)
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, id string, conv *nli.ConversationContext) error {
	data, err := encodeContext(conv)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[id] = memoryItem{data: data, lastSeen: time.Now()}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}

// Len implements Store. Expired but not yet swept sessions do not count.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, item := range s.items {
		if time.Since(item.lastSeen) <= s.ttl {
			n++
		}
	}
	return n, nil
}

// Close stops the janitor. Safe to call more than once.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// janitor periodically removes expired sessions.
func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, item := range s.items {
		if now.Sub(item.lastSeen) > s.ttl {
			delete(s.items, id)
		}
	}
}
