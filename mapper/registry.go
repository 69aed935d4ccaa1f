package mapper

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a gateway mapper from injected tables
type Factory func(cfg Config) (ResponseMapper, error)

// Registry maps gateway identifiers to mapper factories
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under a gateway identifier
func (r *Registry) Register(gateway string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[gateway] = factory
}

// Get retrieves the factory of a gateway
func (r *Registry) Get(gateway string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[gateway]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownGateway, gateway)
	}

	return factory, nil
}

// Supports reports whether a mapper is registered for the gateway
func (r *Registry) Supports(gateway string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[gateway]
	return exists
}

// New builds the mapper of a gateway
func (r *Registry) New(gateway string, cfg Config) (ResponseMapper, error) {
	factory, err := r.Get(gateway)
	if err != nil {
		return nil, err
	}

	return factory(cfg)
}

// Gateways returns the sorted registered identifiers
func (r *Registry) Gateways() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// DefaultRegistry is filled by the gateway packages on import
var DefaultRegistry = NewRegistry()

// Register registers a factory with the default registry
func Register(gateway string, factory Factory) {
	DefaultRegistry.Register(gateway, factory)
}

// Supports reports whether the default registry knows the gateway
func Supports(gateway string) bool {
	return DefaultRegistry.Supports(gateway)
}

// New builds a mapper from the default registry
func New(gateway string, cfg Config) (ResponseMapper, error) {
	return DefaultRegistry.New(gateway, cfg)
}

// Gateways lists the gateways of the default registry
func Gateways() []string {
	return DefaultRegistry.Gateways()
}
