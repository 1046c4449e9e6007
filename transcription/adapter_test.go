package transcription

import (
	"context"
	"testing"

	"github.com/skillsenselab/livescribe/provider"
)

type stubProvider struct {
	name      string
	available bool
	calls     int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) IsAvailable(_ context.Context) bool {
	return s.available
}

func (s *stubProvider) Transcribe(_ context.Context, _ Request) (*Response, error) {
	s.calls++
	return &Response{Text: s.name}, nil
}

func newStubManager(t *testing.T, selector provider.Selector[Provider], stubs ...*stubProvider) *provider.Manager[Provider] {
	t.Helper()
	m := NewManager(selector)
	for _, s := range stubs {
		m.Register(s.name, func(map[string]any) (Provider, error) { return s, nil })
		if err := m.Initialize(context.Background(), s.name, nil); err != nil {
			t.Fatalf("initialize %s: %v", s.name, err)
		}
	}
	return m
}

func TestAdapter_HealthSelectionSkipsDownBackend(t *testing.T) {
	local := &stubProvider{name: "local", available: false}
	cloud := &stubProvider{name: "cloud", available: true}
	m := newStubManager(t, nil, local, cloud)

	a := NewAdapter(m, "local")
	if got := a.Name(); got != "local" {
		t.Errorf("seed Name = %q, want local", got)
	}

	resp, err := a.Transcribe(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "cloud" {
		t.Errorf("served by %q, want cloud", resp.Text)
	}
	if local.calls != 0 {
		t.Errorf("down backend received %d calls", local.calls)
	}
	if got := a.Name(); got != "cloud" {
		t.Errorf("Name after call = %q, want cloud", got)
	}
}

func TestAdapter_ReselectsOnEveryCall(t *testing.T) {
	first := &stubProvider{name: "alpha", available: true}
	second := &stubProvider{name: "beta", available: true}
	m := newStubManager(t, &provider.RoundRobinSelector[Provider]{}, first, second)

	a := NewAdapter(m, "alpha")
	for i := 0; i < 4; i++ {
		if _, err := a.Transcribe(context.Background(), Request{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if first.calls != 2 || second.calls != 2 {
		t.Errorf("round robin split = %d/%d, want 2/2", first.calls, second.calls)
	}
}

func TestAdapter_PinnedDefaultServesEvenWhenDown(t *testing.T) {
	local := &stubProvider{name: "local", available: false}
	cloud := &stubProvider{name: "cloud", available: true}
	m := newStubManager(t, nil, local, cloud)
	if err := m.SetDefault("local"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}

	a := NewAdapter(m, "local")
	resp, err := a.Transcribe(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "local" {
		t.Errorf("served by %q, want pinned local backend", resp.Text)
	}
}

func TestAdapter_NoBackendAvailable(t *testing.T) {
	down := &stubProvider{name: "down", available: false}
	m := newStubManager(t, nil, down)

	a := NewAdapter(m, "down")
	if _, err := a.Transcribe(context.Background(), Request{}); err == nil {
		t.Fatal("expected selection error when every backend is down")
	}
	if down.calls != 0 {
		t.Errorf("down backend received %d calls", down.calls)
	}
}
