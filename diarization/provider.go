package diarization

import (
	"context"

	"github.com/skillsenselab/livescribe/provider"
)

// Provider is a speaker-diarization backend. IsAvailable (from the
// embedded provider interface) doubles as the model-availability check:
// the Service never invokes an unavailable backend.
type Provider interface {
	provider.Provider

	// Diarize partitions the audio in req into speaker-labeled turns.
	Diarize(ctx context.Context, req Request) (*Response, error)
}
