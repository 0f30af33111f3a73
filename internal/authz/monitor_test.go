package authz

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type fakeProber struct {
	err   error
	calls int
}

func (p *fakeProber) Healthy(ctx context.Context) error {
	p.calls++
	return p.err
}

func newTestMonitor(p Prober, window time.Duration, at *time.Time) *Monitor {
	m := NewMonitor(p, window, slog.Default())
	m.Now = func() time.Time { return *at }
	return m
}

func TestMonitor_CachesWithinWindow(t *testing.T) {
	now := time.Now()
	p := &fakeProber{}
	m := newTestMonitor(p, 60*time.Second, &now)

	for i := 0; i < 5; i++ {
		if !m.IsAvailable(context.Background()) {
			t.Fatalf("expected available")
		}
	}
	if p.calls != 1 {
		t.Fatalf("expected 1 probe within window, got %d", p.calls)
	}
}

func TestMonitor_ReprobesAfterWindow(t *testing.T) {
	now := time.Now()
	p := &fakeProber{}
	m := newTestMonitor(p, 60*time.Second, &now)

	m.IsAvailable(context.Background())
	now = now.Add(61 * time.Second)
	m.IsAvailable(context.Background())

	if p.calls != 2 {
		t.Fatalf("expected probe after window expiry, got %d", p.calls)
	}
}

func TestMonitor_ProbeFailureCachesFalse(t *testing.T) {
	now := time.Now()
	p := &fakeProber{err: errors.New("connection refused")}
	m := newTestMonitor(p, 60*time.Second, &now)

	for i := 0; i < 10; i++ {
		if m.IsAvailable(context.Background()) {
			t.Fatalf("expected unavailable")
		}
	}
	// Sustained outage costs one probe per window regardless of volume.
	if p.calls != 1 {
		t.Fatalf("expected 1 probe under outage, got %d", p.calls)
	}
}

func TestMonitor_RecoversAfterOutage(t *testing.T) {
	now := time.Now()
	p := &fakeProber{err: errors.New("down")}
	m := newTestMonitor(p, 60*time.Second, &now)

	if m.IsAvailable(context.Background()) {
		t.Fatalf("expected unavailable")
	}

	p.err = nil
	now = now.Add(2 * time.Minute)
	if !m.IsAvailable(context.Background()) {
		t.Fatalf("expected recovery after window")
	}
}
