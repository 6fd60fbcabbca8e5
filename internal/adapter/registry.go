package adapter

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownSource is returned when a source id is not registered.
var ErrUnknownSource = errors.New("unknown source")

// SourceStatus describes a registered source.
type SourceStatus struct {
	SourceInfo
	Enabled bool `json:"enabled"`
}

// Registry holds adapters in registration order. The order is the order in
// which fetched records are assembled, so it must be stable.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
}

type entry struct {
	adapter Adapter
	enabled bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register appends an enabled adapter.
func (r *Registry) Register(a Adapter) error {
	id := a.Info().ID
	if id == "" {
		return errors.New("adapter has empty source id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("source %s already registered", id)
	}
	r.entries[id] = &entry{adapter: a, enabled: true}
	r.order = append(r.order, id)
	return nil
}

// Get returns an adapter by source id, enabled or not.
func (r *Registry) Get(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	return e.adapter, nil
}

// List returns all adapters in registration order.
func (r *Registry) List() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].adapter)
	}
	return out
}

// Enabled returns the enabled adapters in registration order.
func (r *Registry) Enabled() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		if e := r.entries[id]; e.enabled {
			out = append(out, e.adapter)
		}
	}
	return out
}

// SetEnabled toggles whether a source takes part in refreshes.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	e.enabled = enabled
	return nil
}

// Status returns every registered source with its enabled flag.
func (r *Registry) Status() []SourceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SourceStatus, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		out = append(out, SourceStatus{SourceInfo: e.adapter.Info(), Enabled: e.enabled})
	}
	return out
}
