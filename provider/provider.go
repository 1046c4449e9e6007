// Package provider implements a generic provider framework using Go
// generics for swappable speech-processing backends.
//
// It provides a registry for managing multiple provider implementations
// with factory-based instantiation, availability checking, and runtime
// selection. Transcription and diarization backends both build on it:
// each is registered under a name, instantiated from configuration, and
// chosen by a Selector at call time.
package provider

import "context"

// Provider is the base interface all providers must implement.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string
	// IsAvailable checks if the provider is ready to handle requests.
	IsAvailable(ctx context.Context) bool
}

// Factory creates a provider instance from configuration.
type Factory[T Provider] func(cfg map[string]any) (T, error)

// Initializable is optionally implemented by providers that need setup
// before handling requests (e.g., warm a model, validate credentials).
// The Manager calls Init() automatically when initializing providers.
type Initializable interface {
	Init(ctx context.Context) error
}

// Closeable is optionally implemented by providers that hold resources
// requiring explicit cleanup. The Manager calls Close() during shutdown.
type Closeable interface {
	Close(ctx context.Context) error
}

// Status represents the health status of a provider.
type Status int

const (
	// StatusHealthy indicates the provider is fully operational.
	StatusHealthy Status = iota
	// StatusDegraded indicates the provider is operational but with reduced capability.
	StatusDegraded
	// StatusUnavailable indicates the provider cannot handle requests.
	StatusUnavailable
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// HealthStatus contains detailed health information for a provider.
type HealthStatus struct {
	// Status is the overall health status.
	Status Status
	// Message is a human-readable description of the health state.
	Message string
	// Details contains additional health metadata (latency, model, etc).
	Details map[string]any
}

// HealthChecker is optionally implemented by providers that can report
// detailed health beyond the simple IsAvailable() bool check.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}
