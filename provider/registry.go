package provider

import (
	"fmt"
	"sync"
)

// Factory builds a provider for a model. An empty model selects the
// adapter's default.
type Factory func(model string) Provider

var (
	registry = make(map[Family]Factory)
	mu       sync.RWMutex
)

// Register adds a provider factory to the registry.
// This is typically called from an adapter package's init() function.
func Register(family Family, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[family] = factory
}

// Get builds a provider of the given family.
// Returns an error if no adapter is registered for it.
func Get(family Family, model string) (Provider, error) {
	mu.RLock()
	factory, ok := registry[family]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no adapter registered for %s (available: %v)", family, Available())
	}

	return factory(model), nil
}

// Available returns the families with a registered adapter.
func Available() []Family {
	mu.RLock()
	defer mu.RUnlock()

	families := make([]Family, 0, len(registry))
	for _, f := range Families {
		if _, ok := registry[f]; ok {
			families = append(families, f)
		}
	}
	return families
}

// IsRegistered checks if an adapter is registered for the family.
func IsRegistered(family Family) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[family]
	return ok
}
