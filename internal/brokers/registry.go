package brokers

import (
	"sort"
	"strings"
	"sync"

	"object-denormalizer/internal/common/errors"
)

// Registry resolves the configured BROKER_TYPE to a factory.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]BrokerFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]BrokerFactory{}}
}

// Register files factory under its type. A later factory for the same
// type wins.
func (r *Registry) Register(factory BrokerFactory) {
	r.mu.Lock()
	r.factories[factory.GetType()] = factory
	r.mu.Unlock()
}

func (r *Registry) lookup(brokerType string) (BrokerFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[brokerType]
	return factory, ok
}

// Create builds a broker of brokerType. Unknown types fail with a config
// error listing what is available.
func (r *Registry) Create(brokerType string, config BrokerConfig) (Broker, error) {
	factory, ok := r.lookup(brokerType)
	if !ok {
		return nil, errors.ConfigError("broker type "+brokerType+" not registered").
			WithContext("available", strings.Join(r.GetAvailableTypes(), ","))
	}
	return factory.Create(config)
}

// GetAvailableTypes lists registered types, sorted.
func (r *Registry) GetAvailableTypes() []string {
	r.mu.RLock()
	types := make([]string, 0, len(r.factories))
	for brokerType := range r.factories {
		types = append(types, brokerType)
	}
	r.mu.RUnlock()

	sort.Strings(types)
	return types
}

func (r *Registry) IsRegistered(brokerType string) bool {
	_, ok := r.lookup(brokerType)
	return ok
}
