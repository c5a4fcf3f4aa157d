// Package strategy holds the per-object-type enrichment logic and the
// registry the denormalizer dispatches through.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"object-denormalizer/internal/event"
)

// Object types with built-in strategies
const (
	TypeContent = "content"
	TypeCustom  = "custom"
)

// Strategy enriches one event in place. It must not change the event's
// object type or id.
type Strategy interface {
	Execute(ctx context.Context, e *event.Event) error
}

// Func adapts a function to Strategy
type Func func(ctx context.Context, e *event.Event) error

func (f Func) Execute(ctx context.Context, e *event.Event) error {
	return f(ctx, e)
}

// Registry maps object types to strategies. It is built once and never
// mutated, so it is safe for concurrent lookups.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds a registry. Object types are matched case-insensitively,
// so keys that differ only in case are rejected.
func NewRegistry(strategies map[string]Strategy) (*Registry, error) {
	normalized := make(map[string]Strategy, len(strategies))
	for objectType, s := range strategies {
		key := normalize(objectType)
		if key == "" {
			return nil, fmt.Errorf("strategy registered for empty object type")
		}
		if s == nil {
			return nil, fmt.Errorf("nil strategy for object type %q", objectType)
		}
		if _, exists := normalized[key]; exists {
			return nil, fmt.Errorf("duplicate strategy for object type %q", key)
		}
		normalized[key] = s
	}
	return &Registry{strategies: normalized}, nil
}

// Lookup returns the strategy for objectType
func (r *Registry) Lookup(objectType string) (Strategy, bool) {
	s, ok := r.strategies[normalize(objectType)]
	return s, ok
}

// Types lists the registered object types in sorted order
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.strategies))
	for t := range r.strategies {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func normalize(objectType string) string {
	return strings.ToLower(strings.TrimSpace(objectType))
}
