// Package registry provides the lookup and dispatch layer over named flow
// adapters. It holds no routing policy; scoring and strategy live in the
// portal and coordinator.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/pkg/models"
)

// Registry maps unique flow names to their adapters.
// It provides thread-safe registration and lookup.
type Registry struct {
	// adapters maps flow names to adapters.
	adapters map[string]*flow.Adapter
	// order preserves registration order for deterministic iteration.
	order []string
	// mu protects all fields.
	mu sync.RWMutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		adapters: make(map[string]*flow.Adapter),
	}
}

// Register adds an adapter under its flow name, replacing any previous
// adapter with the same name.
func (r *Registry) Register(a *flow.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[a.Name()]; !exists {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

// Unregister removes an adapter by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[name]; !exists {
		return
	}
	delete(r.adapters, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get retrieves an adapter by name. Returns nil if the name is unknown.
func (r *Registry) Get(name string) *flow.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[name]
}

// Names returns the flow names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// GetAvailable returns all adapters whose status is available, in
// registration order.
func (r *Registry) GetAvailable() []*flow.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var available []*flow.Adapter
	for _, name := range r.order {
		a := r.adapters[name]
		if a.Status() == models.FlowStatusAvailable {
			available = append(available, a)
		}
	}
	return available
}

// GetByCapability returns all adapters declaring the given capability, in
// registration order.
func (r *Registry) GetByCapability(capability string) []*flow.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*flow.Adapter
	for _, name := range r.order {
		a := r.adapters[name]
		for _, c := range a.Capabilities() {
			if c == capability {
				matched = append(matched, a)
				break
			}
		}
	}
	return matched
}

// ExecuteOnFlow delegates task execution to the named adapter.
// Unknown names are a hard routing error; everything else is the
// adapter's contract.
func (r *Registry) ExecuteOnFlow(ctx context.Context, name string, task *models.Task) (*models.ExecutionResult, error) {
	a := r.Get(name)
	if a == nil {
		return nil, &flow.RoutingError{Reason: "unknown flow " + name}
	}
	return a.ExecuteTask(ctx, task)
}

// Count returns the number of registered flows.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// Snapshot returns registry-visible views of all flows, sorted by name.
func (r *Registry) Snapshot() []models.FlowInstance {
	r.mu.RLock()
	adapters := make([]*flow.Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.mu.RUnlock()

	instances := make([]models.FlowInstance, 0, len(adapters))
	for _, a := range adapters {
		instances = append(instances, a.Snapshot())
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Name < instances[j].Name
	})
	return instances
}
