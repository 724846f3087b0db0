package proxmox

import (
	"fmt"
	"sort"
	"sync"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/domain"
	"github.com/proxmox-nli/internal/logging"
)

// Factory creates and caches backend clients by name. Backends register
// themselves from init so importing a backend package is enough to enable it.
type Factory struct {
	mu      sync.RWMutex
	clients map[string]domain.Client
}

// Creator is a function type for creating backend clients
type Creator func() (domain.Client, error)

var (
	globalFactory     *Factory
	globalFactoryOnce sync.Once
	creators          = make(map[string]Creator)
	creatorsMu        sync.RWMutex
)

// GetFactory returns the global factory instance
func GetFactory() *Factory {
	globalFactoryOnce.Do(func() {
		globalFactory = &Factory{
			clients: make(map[string]domain.Client),
		}
	})
	return globalFactory
}

// Register registers a creator function for a backend name
func Register(backend string, creator Creator) {
	creatorsMu.Lock()
	defer creatorsMu.Unlock()
	creators[backend] = creator
}

// Create creates or returns a cached client for a backend
func (f *Factory) Create(backend string) (domain.Client, error) {
	f.mu.RLock()
	if c, exists := f.clients[backend]; exists {
		f.mu.RUnlock()
		return c, nil
	}
	f.mu.RUnlock()

	creatorsMu.RLock()
	creator, exists := creators[backend]
	creatorsMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedBackend, backend)
	}

	c, err := creator()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.clients[backend] = c
	f.mu.Unlock()

	return c, nil
}

// SupportedBackends returns all registered backend names
func (f *Factory) SupportedBackends() []string {
	creatorsMu.RLock()
	defer creatorsMu.RUnlock()

	backends := make([]string, 0, len(creators))
	for name := range creators {
		backends = append(backends, name)
	}
	sort.Strings(backends)
	return backends
}

// IsSupported checks if a backend is registered
func (f *Factory) IsSupported(backend string) bool {
	creatorsMu.RLock()
	defer creatorsMu.RUnlock()

	_, exists := creators[backend]
	return exists
}

// NewFromConfig picks the backend named in the configuration and returns
// it along with the resolved backend name. Without a configured API token
// the api backend cannot authenticate, so the factory falls back to the
// simulated cluster.
func NewFromConfig(cfg *config.Config) (domain.Client, string, error) {
	backend := cfg.Proxmox.Backend
	if backend == "" {
		backend = "api"
	}

	if backend == "api" && !cfg.HasCredentials() {
		if GetFactory().IsSupported("sim") {
			logging.Warn("No Proxmox API token configured, using the simulated cluster")
			backend = "sim"
		}
	}

	client, err := GetFactory().Create(backend)
	return client, backend, err
}
