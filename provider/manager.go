package provider

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/skillsenselab/livescribe/logger"
)

// Manager owns the initialized provider instances for one concern. A
// Registry supplies factories, the Manager builds instances from them,
// and a Selector picks which instance serves a given call. Setting a
// default name pins that instance for every call; the selector only
// runs while no default is set.
type Manager[T Provider] struct {
	registry *Registry[T]
	selector Selector[T]
	log      *logger.Logger

	mu          sync.RWMutex
	instances   map[string]T
	defaultName string
}

// NewManager wires a Manager to the given factory registry and
// selection strategy.
func NewManager[T Provider](registry *Registry[T], selector Selector[T]) *Manager[T] {
	return &Manager[T]{
		registry:  registry,
		selector:  selector,
		instances: make(map[string]T),
		log:       logger.Get("provider"),
	}
}

// Register adds a factory under name. Registration alone makes nothing
// servable; Initialize must build the instance first.
func (m *Manager[T]) Register(name string, factory Factory[T]) {
	m.registry.RegisterFactory(name, factory)
	m.log.Info("factory registered", logger.Fields("provider", name))
}

// Initialize builds the named provider from its factory, runs its Init
// hook when it has one, and makes the instance servable.
func (m *Manager[T]) Initialize(ctx context.Context, name string, cfg map[string]any) error {
	instance, err := m.registry.Create(name, cfg)
	if err != nil {
		return fmt.Errorf("build provider %q: %w", name, err)
	}
	if hook, ok := any(instance).(Initializable); ok {
		if err := hook.Init(ctx); err != nil {
			return fmt.Errorf("init provider %q: %w", name, err)
		}
	}

	m.mu.Lock()
	m.instances[name] = instance
	m.mu.Unlock()

	m.log.Info("provider initialized", logger.Fields("provider", name))
	return nil
}

// Get returns the provider that should serve the next call. A pinned
// default is returned as-is, without an availability check; otherwise
// the selector chooses among all initialized instances.
func (m *Manager[T]) Get(ctx context.Context) (T, error) {
	m.mu.RLock()
	pinned := m.defaultName
	instances := m.snapshot()
	m.mu.RUnlock()

	if pinned == "" {
		return m.selector.Select(ctx, instances)
	}
	p, ok := instances[pinned]
	if !ok {
		var zero T
		return zero, fmt.Errorf("default provider %q not found", pinned)
	}
	return p, nil
}

// SetDefault pins name as the provider for every subsequent Get. The
// name must already be initialized.
func (m *Manager[T]) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[name]; !ok {
		return fmt.Errorf("provider %q has not been initialized", name)
	}
	m.defaultName = name
	m.log.Info("default provider set", logger.Fields("provider", name))
	return nil
}

// Available lists the initialized provider names in sorted order.
func (m *Manager[T]) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.instances))
}

// Health reports per-provider health for all initialized providers.
// Providers implementing HealthChecker report detailed status; the rest
// are mapped from IsAvailable.
func (m *Manager[T]) Health(ctx context.Context) map[string]HealthStatus {
	m.mu.RLock()
	instances := m.snapshot()
	m.mu.RUnlock()

	out := make(map[string]HealthStatus, len(instances))
	for name, p := range instances {
		if hc, ok := any(p).(HealthChecker); ok {
			out[name] = hc.Health(ctx)
			continue
		}
		if p.IsAvailable(ctx) {
			out[name] = HealthStatus{Status: StatusHealthy}
		} else {
			out[name] = HealthStatus{Status: StatusUnavailable}
		}
	}
	return out
}

// Close shuts down every initialized provider that holds resources.
// The first error is returned; remaining providers are still closed.
func (m *Manager[T]) Close(ctx context.Context) error {
	m.mu.Lock()
	instances := m.instances
	m.instances = make(map[string]T)
	m.defaultName = ""
	m.mu.Unlock()

	var firstErr error
	for name, p := range instances {
		if c, ok := any(p).(Closeable); ok {
			if err := c.Close(ctx); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close provider %q: %w", name, err)
			}
		}
	}
	return firstErr
}

// snapshot copies the instances map. Callers hold at least a read lock.
func (m *Manager[T]) snapshot() map[string]T {
	return maps.Clone(m.instances)
}
