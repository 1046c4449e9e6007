package diarization

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/skillsenselab/livescribe/errors"
	"github.com/skillsenselab/livescribe/logger"
	"github.com/skillsenselab/livescribe/observability"
)

// Service runs speaker diarization over a complete audio buffer and
// caches the most recent result. Each successful Diarize call replaces
// the cache wholesale; lookups and renames operate on the cached
// result. Safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	backend Provider
	cached  *Response
	log     *logger.Logger
}

// NewService creates a diarization service around the given backend.
func NewService(backend Provider) *Service {
	return &Service{
		backend: backend,
		log:     logger.Get("diarization"),
	}
}

// Available reports whether the backend model is ready. Callers should
// consult this instead of probing Diarize with errors.
func (s *Service) Available(ctx context.Context) bool {
	return s.backend.IsAvailable(ctx)
}

// Diarize segments the audio in req by speaker. Empty input yields an
// empty, zero-speaker result without invoking the backend. The result
// is cached, replacing any previous one.
func (s *Service) Diarize(ctx context.Context, req Request) (*Response, error) {
	if len(req.Samples) == 0 {
		empty := &Response{Segments: []Segment{}}
		s.mu.Lock()
		s.cached = empty
		s.mu.Unlock()
		return copyResponse(empty), nil
	}

	if !s.backend.IsAvailable(ctx) {
		return nil, apperrors.ModelUnavailable(s.backend.Name())
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanDiarize)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrProvider, s.backend.Name())

	start := time.Now()
	resp, err := s.backend.Diarize(ctx, req)
	if err != nil {
		observability.SetSpanError(ctx, err)
		s.log.Error("diarization failed", logger.ErrorFields("diarize", err))
		return nil, apperrors.DiarizationFailed(err)
	}
	s.log.Info("diarization complete", logger.Fields(
		"segments", len(resp.Segments),
		"speakers", resp.NumSpeakers,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))

	s.mu.Lock()
	s.cached = resp
	s.mu.Unlock()
	return copyResponse(resp), nil
}

// SpeakerLabelAt returns the label of the first cached segment whose
// [start, end) range contains t. The second return is false when no
// result is cached or no segment covers t.
func (s *Service) SpeakerLabelAt(t float64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return "", false
	}
	return s.cached.LabelAt(t)
}

// RenameSpeaker rewrites the label on every cached segment matching old
// and returns the number of segments changed.
func (s *Service) RenameSpeaker(old, new string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return 0
	}
	return s.cached.Rename(old, new)
}

// Result returns a copy of the cached result, or nil when no Diarize
// call has completed yet.
func (s *Service) Result() *Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyResponse(s.cached)
}

func copyResponse(r *Response) *Response {
	if r == nil {
		return nil
	}
	cp := &Response{
		Segments:    make([]Segment, len(r.Segments)),
		NumSpeakers: r.NumSpeakers,
	}
	copy(cp.Segments, r.Segments)
	return cp
}
