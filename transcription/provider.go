package transcription

import (
	"context"

	"github.com/skillsenselab/livescribe/provider"
)

// Provider is a speech-to-text backend. IsAvailable (from the embedded
// provider interface) reports whether the backend can take a request
// right now; selection strategies consult it per call.
type Provider interface {
	provider.Provider

	// Transcribe converts the audio in req to text. Implementations
	// honor ctx cancellation: a window abandoned by the pipeline must
	// not keep a connection open.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}

// NewManager builds the backend manager for transcription providers,
// driven by the given selection strategy. A nil selector falls back to
// first-available ordering.
func NewManager(selector provider.Selector[Provider]) *provider.Manager[Provider] {
	if selector == nil {
		selector = &provider.HealthCheckSelector[Provider]{}
	}
	return provider.NewManager(provider.NewRegistry[Provider](), selector)
}
