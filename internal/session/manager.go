package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/domain"
	"github.com/proxmox-nli/internal/logging"
	"github.com/proxmox-nli/internal/nli"
)

// Session store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendAuto   = "auto"
)

// Recorder receives an audit record for every processed utterance.
// The history store implements it; a nil recorder disables auditing.
type Recorder interface {
	Record(sessionID string, ex nli.Exchange) error
}

// Manager owns the session store and runs utterances through per-session
// engines. Utterances within one session are processed strictly one at a
// time; separate sessions proceed concurrently.
type Manager struct {
	res        *nli.Resources
	dispatcher nli.Dispatcher
	responder  nli.Responder
	store      Store
	recorder   Recorder

	mu sync.Mutex
	// locks serializes utterances per session. Entries are single
	// mutexes and are kept for the life of the process.
	locks map[string]*sync.Mutex
}

// NewManager opens the configured session store and returns a manager
// dispatching through the given collaborators.
func NewManager(cfg config.SessionConfig, dispatcher nli.Dispatcher, responder nli.Responder) (*Manager, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	return &Manager{
		res:        nli.DefaultResources(),
		dispatcher: dispatcher,
		responder:  responder,
		store:      store,
		locks:      make(map[string]*sync.Mutex),
	}, nil
}

// SetRecorder attaches the audit recorder. Call before serving traffic.
func (m *Manager) SetRecorder(r Recorder) {
	m.recorder = r
}

// openStore selects the backend. "auto" prefers Redis when an address is
// configured and falls back to memory when the connection fails.
func openStore(cfg config.SessionConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemoryStore(cfg.TTL), nil

	case BackendRedis:
		return NewRedisStore(cfg.Redis, cfg.TTL)

	case BackendAuto:
		if cfg.Redis.Addr != "" {
			store, err := NewRedisStore(cfg.Redis, cfg.TTL)
			if err == nil {
				logging.Info("Session store: redis at %s", cfg.Redis.Addr)
				return store, nil
			}
			logging.Warn("Redis unavailable at %s, using in-memory sessions: %v", cfg.Redis.Addr, err)
		}
		return NewMemoryStore(cfg.TTL), nil

	default:
		return nil, fmt.Errorf("%w: session backend %q", domain.ErrUnsupportedBackend, cfg.Backend)
	}
}

// Ask processes one utterance within a session. An empty session ID
// starts a fresh session; the returned ID identifies it for follow-ups.
func (m *Manager) Ask(ctx context.Context, sessionID, text string) (string, nli.Exchange, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return sessionID, nli.Exchange{}, err
		}
		conv = nli.NewContext()
	}

	engine := nli.NewEngine(m.res, m.dispatcher, m.responder)
	engine.SetContext(conv)

	ex := engine.Process(ctx, text)

	if err := m.store.Save(ctx, sessionID, engine.Context()); err != nil {
		logging.Warn("Failed to save session %s: %v", sessionID, err)
	}

	if m.recorder != nil {
		if err := m.recorder.Record(sessionID, ex); err != nil {
			logging.Warn("Failed to record history for session %s: %v", sessionID, err)
		}
	}

	return sessionID, ex, nil
}

// Reset forgets a session's conversation context.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return m.store.Delete(ctx, sessionID)
}

// Sessions reports how many live sessions the store holds.
func (m *Manager) Sessions(ctx context.Context) (int, error) {
	return m.store.Len(ctx)
}

// Close releases the session store.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) sessionLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}
