package platform

import (
	"fmt"
	"sync"

	domainsync "github.com/adsync/backend/internal/domain/sync"
)

// Registry is a thread-safe registry of configured platform adapters
type Registry struct {
	mu       sync.RWMutex
	adapters map[domainsync.PlatformCode]domainsync.Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[domainsync.PlatformCode]domainsync.Adapter),
	}
}

// Register adds an adapter; a later registration for the same code wins
func (r *Registry) Register(adapter domainsync.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.PlatformCode()] = adapter
}

// GetAdapter returns the adapter for the specified platform code
func (r *Registry) GetAdapter(code domainsync.PlatformCode) (domainsync.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainsync.ErrUnknownPlatform, code)
	}
	return adapter, nil
}

// ListAdapters returns all registered adapters
func (r *Registry) ListAdapters() []domainsync.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapters := make([]domainsync.Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	return adapters
}

// Ensure Registry implements the sync.AdapterRegistry interface
var _ domainsync.AdapterRegistry = (*Registry)(nil)
