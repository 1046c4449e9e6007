package diarization

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/skillsenselab/livescribe/errors"
)

type stubBackend struct {
	available bool
	calls     int
	resp      *Response
	err       error
}

func (s *stubBackend) Name() string                        { return "stub" }
func (s *stubBackend) IsAvailable(_ context.Context) bool  { return s.available }
func (s *stubBackend) Diarize(_ context.Context, _ Request) (*Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func twoSpeakerResult() *Response {
	return &Response{
		Segments: []Segment{
			{Speaker: "SPEAKER_00", Start: 0.0, End: 2.0},
			{Speaker: "SPEAKER_01", Start: 2.0, End: 5.0},
		},
		NumSpeakers: 2,
	}
}

func TestServiceEmptyInputSkipsBackend(t *testing.T) {
	backend := &stubBackend{available: true, resp: twoSpeakerResult()}
	svc := NewService(backend)

	resp, err := svc.Diarize(context.Background(), Request{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Diarize: %v", err)
	}
	if len(resp.Segments) != 0 || resp.NumSpeakers != 0 {
		t.Errorf("expected empty result, got %d segments, %d speakers", len(resp.Segments), resp.NumSpeakers)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for empty input", backend.calls)
	}
	if svc.Result() == nil {
		t.Error("empty result should still be cached")
	}
}

func TestServiceUnavailableBackend(t *testing.T) {
	backend := &stubBackend{available: false, resp: twoSpeakerResult()}
	svc := NewService(backend)

	if svc.Available(context.Background()) {
		t.Error("Available should report false")
	}

	_, err := svc.Diarize(context.Background(), Request{Samples: make([]float32, 16000), SampleRate: 16000})
	if err == nil {
		t.Fatal("expected error from unavailable backend")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != apperrors.ErrCodeModelUnavailable {
		t.Errorf("expected MODEL_UNAVAILABLE, got %s", appErr.Code)
	}
	if !appErr.Retryable {
		t.Error("model unavailable should be retryable")
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times while unavailable", backend.calls)
	}
}

func TestServiceBackendErrorWrapped(t *testing.T) {
	backend := &stubBackend{available: true, resp: twoSpeakerResult()}
	svc := NewService(backend)

	if _, err := svc.Diarize(context.Background(), Request{Samples: make([]float32, 16000), SampleRate: 16000}); err != nil {
		t.Fatalf("Diarize: %v", err)
	}

	backend.err = errors.New("sidecar crashed")
	_, err := svc.Diarize(context.Background(), Request{Samples: make([]float32, 16000), SampleRate: 16000})
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != apperrors.ErrCodeDiarizationFailed {
		t.Errorf("expected DIARIZATION_FAILED, got %s", appErr.Code)
	}
	if !errors.Is(err, backend.err) {
		t.Error("wrapped error should preserve the cause")
	}

	// Failed call must not disturb the cached result.
	if label, ok := svc.SpeakerLabelAt(1.0); !ok || label != "SPEAKER_00" {
		t.Errorf("cache disturbed by failed call: %q %v", label, ok)
	}
}

func TestServiceCacheReplacedWholesale(t *testing.T) {
	backend := &stubBackend{available: true, resp: twoSpeakerResult()}
	svc := NewService(backend)
	ctx := context.Background()

	if _, err := svc.Diarize(ctx, Request{Samples: make([]float32, 16000), SampleRate: 16000}); err != nil {
		t.Fatalf("Diarize: %v", err)
	}
	if label, ok := svc.SpeakerLabelAt(3.0); !ok || label != "SPEAKER_01" {
		t.Fatalf("expected SPEAKER_01 at t=3.0, got %q %v", label, ok)
	}

	backend.resp = &Response{
		Segments:    []Segment{{Speaker: "SPEAKER_02", Start: 0.0, End: 1.0}},
		NumSpeakers: 1,
	}
	if _, err := svc.Diarize(ctx, Request{Samples: make([]float32, 16000), SampleRate: 16000}); err != nil {
		t.Fatalf("Diarize: %v", err)
	}

	if label, ok := svc.SpeakerLabelAt(0.5); !ok || label != "SPEAKER_02" {
		t.Errorf("expected SPEAKER_02 at t=0.5, got %q %v", label, ok)
	}
	if _, ok := svc.SpeakerLabelAt(3.0); ok {
		t.Error("old segments should be gone after re-diarization")
	}
}

func TestServiceSpeakerLabelAtBoundaries(t *testing.T) {
	backend := &stubBackend{available: true, resp: twoSpeakerResult()}
	svc := NewService(backend)

	if _, err := svc.Diarize(context.Background(), Request{Samples: make([]float32, 16000), SampleRate: 16000}); err != nil {
		t.Fatalf("Diarize: %v", err)
	}

	cases := []struct {
		t     float64
		label string
		found bool
	}{
		{0.0, "SPEAKER_00", true},
		{1.99, "SPEAKER_00", true},
		{2.0, "SPEAKER_01", true},
		{4.99, "SPEAKER_01", true},
		{5.0, "", false},
		{-1.0, "", false},
	}
	for _, tc := range cases {
		label, found := svc.SpeakerLabelAt(tc.t)
		if label != tc.label || found != tc.found {
			t.Errorf("SpeakerLabelAt(%v) = %q, %v; want %q, %v", tc.t, label, found, tc.label, tc.found)
		}
	}
}

func TestServiceRenameSpeaker(t *testing.T) {
	backend := &stubBackend{available: true}
	backend.resp = &Response{
		Segments: []Segment{
			{Speaker: "SPEAKER_00", Start: 0.0, End: 1.0},
			{Speaker: "SPEAKER_01", Start: 1.0, End: 2.0},
			{Speaker: "SPEAKER_00", Start: 2.0, End: 3.0},
		},
		NumSpeakers: 2,
	}
	svc := NewService(backend)

	if _, err := svc.Diarize(context.Background(), Request{Samples: make([]float32, 16000), SampleRate: 16000}); err != nil {
		t.Fatalf("Diarize: %v", err)
	}

	if n := svc.RenameSpeaker("SPEAKER_00", "Alice"); n != 2 {
		t.Errorf("expected 2 renamed segments, got %d", n)
	}
	if label, _ := svc.SpeakerLabelAt(0.5); label != "Alice" {
		t.Errorf("expected Alice at t=0.5, got %q", label)
	}
	if label, _ := svc.SpeakerLabelAt(2.5); label != "Alice" {
		t.Errorf("expected Alice at t=2.5, got %q", label)
	}
	if label, _ := svc.SpeakerLabelAt(1.5); label != "SPEAKER_01" {
		t.Errorf("unrelated speaker renamed: %q", label)
	}
	if n := svc.RenameSpeaker("SPEAKER_99", "Bob"); n != 0 {
		t.Errorf("expected 0 renames for unknown speaker, got %d", n)
	}
}

func TestServiceNoCachedResult(t *testing.T) {
	svc := NewService(&stubBackend{available: true})

	if _, ok := svc.SpeakerLabelAt(1.0); ok {
		t.Error("lookup should miss before any diarization")
	}
	if n := svc.RenameSpeaker("SPEAKER_00", "Alice"); n != 0 {
		t.Errorf("rename on empty cache returned %d", n)
	}
	if svc.Result() != nil {
		t.Error("Result should be nil before any diarization")
	}
}

func TestServiceResultIsCopy(t *testing.T) {
	backend := &stubBackend{available: true, resp: twoSpeakerResult()}
	svc := NewService(backend)

	if _, err := svc.Diarize(context.Background(), Request{Samples: make([]float32, 16000), SampleRate: 16000}); err != nil {
		t.Fatalf("Diarize: %v", err)
	}

	res := svc.Result()
	res.Segments[0].Speaker = "mutated"

	if label, _ := svc.SpeakerLabelAt(0.5); label != "SPEAKER_00" {
		t.Errorf("external mutation leaked into cache: %q", label)
	}
}
