package provider

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync/atomic"
)

// Selector chooses which initialized provider serves a call. Selection
// runs per call, so a provider that stops reporting available falls out
// of rotation on the next request.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (T, error)
}

var errNoneAvailable = fmt.Errorf("no provider available")

// sortedNames returns the provider names in deterministic order so
// selection does not depend on map iteration.
func sortedNames[T Provider](providers map[string]T) []string {
	return slices.Sorted(maps.Keys(providers))
}

// PrioritySelector serves from a fixed preference order, falling
// through to the next name when one is down. Names missing from the
// initialized set are skipped.
type PrioritySelector[T Provider] struct {
	// Priority is the ordered list of provider names to try.
	Priority []string
}

// Select returns the first available provider in priority order.
func (s *PrioritySelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	for _, name := range s.Priority {
		p, ok := providers[name]
		if ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("priority list %v: %w", s.Priority, errNoneAvailable)
}

// RoundRobinSelector spreads calls evenly across providers, walking a
// sorted name ring from an atomically advanced position. Unavailable
// providers are stepped over.
type RoundRobinSelector[T Provider] struct {
	next atomic.Uint64
}

// Select picks the next available provider on the ring.
func (s *RoundRobinSelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	names := sortedNames(providers)
	if len(names) == 0 {
		var zero T
		return zero, errNoneAvailable
	}

	start := int(s.next.Add(1)-1) % len(names)
	for i := 0; i < len(names); i++ {
		p := providers[names[(start+i)%len(names)]]
		if p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, errNoneAvailable
}

// HealthCheckSelector serves the first provider, in name order, that
// reports available right now.
type HealthCheckSelector[T Provider] struct{}

// Select probes providers in sorted-name order and returns the first
// available one.
func (s *HealthCheckSelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	for _, name := range sortedNames(providers) {
		if p := providers[name]; p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, errNoneAvailable
}

// SelectorFor maps a strategy name from configuration to a selector:
// "priority" (using the given order), "round_robin", or the default
// "health".
func SelectorFor[T Provider](strategy string, priority []string) Selector[T] {
	switch strategy {
	case "priority":
		return &PrioritySelector[T]{Priority: priority}
	case "round_robin":
		return &RoundRobinSelector[T]{}
	default:
		return &HealthCheckSelector[T]{}
	}
}
