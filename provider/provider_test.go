package provider

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type fakeBackend struct {
	name      string
	available bool
	inited    bool
	closed    bool
}

func (p *fakeBackend) Name() string                     { return p.name }
func (p *fakeBackend) IsAvailable(context.Context) bool { return p.available }
func (p *fakeBackend) Init(context.Context) error       { p.inited = true; return nil }
func (p *fakeBackend) Close(context.Context) error      { p.closed = true; return nil }

func factoryFor(p *fakeBackend) Factory[*fakeBackend] {
	return func(map[string]any) (*fakeBackend, error) { return p, nil }
}

func TestRegistryCreatesFromNamedFactory(t *testing.T) {
	reg := NewRegistry[*fakeBackend]()
	reg.RegisterFactory("local", factoryFor(&fakeBackend{name: "local", available: true}))

	p, err := reg.Create("local", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name() != "local" {
		t.Errorf("created %q, want local", p.Name())
	}
}

func TestRegistryCreateWithoutFactory(t *testing.T) {
	reg := NewRegistry[*fakeBackend]()
	_, err := reg.Create("missing", nil)
	if err == nil {
		t.Fatal("expected error for name with no factory")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error %q does not name the provider", err)
	}
}

func TestRegistryCreateIsNotCached(t *testing.T) {
	reg := NewRegistry[*fakeBackend]()
	built := 0
	reg.RegisterFactory("counting", func(map[string]any) (*fakeBackend, error) {
		built++
		return &fakeBackend{name: fmt.Sprintf("counting-%d", built)}, nil
	})

	if _, err := reg.Create("counting", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Create("counting", nil); err != nil {
		t.Fatal(err)
	}
	if built != 2 {
		t.Errorf("factory ran %d times, want one run per Create", built)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry[*fakeBackend]()
	reg.RegisterFactory("whisper", factoryFor(&fakeBackend{name: "whisper"}))
	reg.RegisterFactory("openai", factoryFor(&fakeBackend{name: "openai"}))

	names := reg.Names()
	if len(names) != 2 || names[0] != "openai" || names[1] != "whisper" {
		t.Errorf("Names() = %v, want sorted [openai whisper]", names)
	}
}

func TestPrioritySelectorFallsThrough(t *testing.T) {
	providers := map[string]*fakeBackend{
		"whisper": {name: "whisper", available: false},
		"openai":  {name: "openai", available: true},
		"backup":  {name: "backup", available: true},
	}
	sel := &PrioritySelector[*fakeBackend]{Priority: []string{"whisper", "openai", "backup"}}

	p, err := sel.Select(context.Background(), providers)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("selected %q, want first available openai", p.Name())
	}
}

func TestPrioritySelectorAllDown(t *testing.T) {
	providers := map[string]*fakeBackend{"a": {name: "a"}}
	sel := &PrioritySelector[*fakeBackend]{Priority: []string{"a"}}
	if _, err := sel.Select(context.Background(), providers); err == nil {
		t.Error("expected error when nothing in the priority list is up")
	}
}

func TestRoundRobinSelectorEvenSplit(t *testing.T) {
	providers := map[string]*fakeBackend{
		"a": {name: "a", available: true},
		"b": {name: "b", available: true},
	}
	sel := &RoundRobinSelector[*fakeBackend]{}

	seen := map[string]int{}
	for i := 0; i < 10; i++ {
		p, err := sel.Select(context.Background(), providers)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		seen[p.Name()]++
	}
	if seen["a"] != 5 || seen["b"] != 5 {
		t.Errorf("distribution %v, want 5/5", seen)
	}
}

func TestRoundRobinSelectorStepsOverDown(t *testing.T) {
	providers := map[string]*fakeBackend{
		"a": {name: "a", available: false},
		"b": {name: "b", available: true},
	}
	sel := &RoundRobinSelector[*fakeBackend]{}

	for i := 0; i < 4; i++ {
		p, err := sel.Select(context.Background(), providers)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if p.Name() != "b" {
			t.Errorf("call %d selected %q, want the only live backend", i, p.Name())
		}
	}
}

func TestHealthCheckSelectorFirstAvailable(t *testing.T) {
	providers := map[string]*fakeBackend{
		"zeta":  {name: "zeta", available: true},
		"alpha": {name: "alpha", available: false},
	}
	sel := &HealthCheckSelector[*fakeBackend]{}

	p, err := sel.Select(context.Background(), providers)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.Name() != "zeta" {
		t.Errorf("selected %q, want zeta (alpha is down)", p.Name())
	}
}

func TestSelectorForStrategyNames(t *testing.T) {
	if _, ok := SelectorFor[*fakeBackend]("priority", []string{"a"}).(*PrioritySelector[*fakeBackend]); !ok {
		t.Error("strategy priority did not build a PrioritySelector")
	}
	if _, ok := SelectorFor[*fakeBackend]("round_robin", nil).(*RoundRobinSelector[*fakeBackend]); !ok {
		t.Error("strategy round_robin did not build a RoundRobinSelector")
	}
	if _, ok := SelectorFor[*fakeBackend]("", nil).(*HealthCheckSelector[*fakeBackend]); !ok {
		t.Error("empty strategy did not fall back to HealthCheckSelector")
	}
}

func newTestManager(t *testing.T, backends ...*fakeBackend) *Manager[*fakeBackend] {
	t.Helper()
	reg := NewRegistry[*fakeBackend]()
	mgr := NewManager(reg, &HealthCheckSelector[*fakeBackend]{})
	for _, b := range backends {
		reg.RegisterFactory(b.name, factoryFor(b))
		if err := mgr.Initialize(context.Background(), b.name, nil); err != nil {
			t.Fatalf("initialize %s: %v", b.name, err)
		}
	}
	return mgr
}

func TestManagerInitializeRunsInitHook(t *testing.T) {
	backend := &fakeBackend{name: "whisper", available: true}
	mgr := newTestManager(t, backend)

	p, err := mgr.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name() != "whisper" {
		t.Errorf("Get = %q, want whisper", p.Name())
	}
	if !backend.inited {
		t.Error("Init hook did not run during Initialize")
	}
}

func TestManagerInitializeFactoryError(t *testing.T) {
	reg := NewRegistry[*fakeBackend]()
	reg.RegisterFactory("bad", func(map[string]any) (*fakeBackend, error) {
		return nil, fmt.Errorf("bad config")
	})
	mgr := NewManager(reg, &HealthCheckSelector[*fakeBackend]{})

	if err := mgr.Initialize(context.Background(), "bad", nil); err == nil {
		t.Error("expected the factory error to surface")
	}
}

func TestManagerDefaultPinSkipsSelector(t *testing.T) {
	down := &fakeBackend{name: "down"}
	up := &fakeBackend{name: "up", available: true}
	mgr := newTestManager(t, down, up)

	if err := mgr.SetDefault("down"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	p, err := mgr.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name() != "down" {
		t.Errorf("Get = %q, want the pinned backend regardless of health", p.Name())
	}

	if err := mgr.SetDefault("missing"); err == nil {
		t.Error("expected error pinning an uninitialized name")
	}
}

func TestManagerAvailableSorted(t *testing.T) {
	mgr := newTestManager(t,
		&fakeBackend{name: "whisper", available: true},
		&fakeBackend{name: "openai", available: true},
	)
	names := mgr.Available()
	if len(names) != 2 || names[0] != "openai" || names[1] != "whisper" {
		t.Errorf("Available() = %v, want sorted [openai whisper]", names)
	}
}

func TestManagerHealthMapsAvailability(t *testing.T) {
	mgr := newTestManager(t,
		&fakeBackend{name: "up", available: true},
		&fakeBackend{name: "down", available: false},
	)

	health := mgr.Health(context.Background())
	if health["up"].Status != StatusHealthy {
		t.Errorf("up reported %v, want healthy", health["up"].Status)
	}
	if health["down"].Status != StatusUnavailable {
		t.Errorf("down reported %v, want unavailable", health["down"].Status)
	}
}

func TestManagerCloseRunsHooksAndClears(t *testing.T) {
	backend := &fakeBackend{name: "whisper", available: true}
	mgr := newTestManager(t, backend)

	if err := mgr.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !backend.closed {
		t.Error("Close hook did not run")
	}
	if len(mgr.Available()) != 0 {
		t.Error("instances survived Close")
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnavailable, "unavailable"},
		{Status(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("Status(%d).String() = %q, want %q", tc.status, got, tc.want)
		}
	}
}
