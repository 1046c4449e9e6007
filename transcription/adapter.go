package transcription

import (
	"context"
	"sync"

	"github.com/skillsenselab/livescribe/provider"
)

// Adapter exposes the provider manager as a single transcription
// backend. Every call asks the manager for a provider first: a pinned
// default keeps serving, while an empty default re-runs the selection
// strategy per request and moves off a backend that stops reporting
// available.
type Adapter struct {
	manager *provider.Manager[Provider]

	mu   sync.Mutex
	last string
}

// NewAdapter wraps manager. Until the first call goes through, Name
// reports the given seed label.
func NewAdapter(manager *provider.Manager[Provider], seed string) *Adapter {
	return &Adapter{manager: manager, last: seed}
}

// Name reports the backend that served the most recent call.
func (a *Adapter) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Transcribe selects a backend from the manager and forwards the
// request to it.
func (a *Adapter) Transcribe(ctx context.Context, req Request) (*Response, error) {
	backend, err := a.manager.Get(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.last = backend.Name()
	a.mu.Unlock()

	return backend.Transcribe(ctx, req)
}
