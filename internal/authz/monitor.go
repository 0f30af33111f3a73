package authz

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Prober checks whether the PDP is reachable. *Client implements it.
type Prober interface {
	Healthy(ctx context.Context) error
}

// Monitor caches PDP availability for a bounded freshness window so that a
// sustained outage costs roughly one probe per window regardless of request
// volume. State is an explicit struct owned here, not a package singleton;
// inject Now and the prober in tests.
type Monitor struct {
	Prober Prober
	Window time.Duration
	Log    *slog.Logger
	Now    func() time.Time

	mu            sync.Mutex
	lastAvailable bool
	lastCheckedAt time.Time
}

func NewMonitor(p Prober, window time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{Prober: p, Window: window, Log: log, Now: time.Now}
}

// IsAvailable returns the cached availability when fresh, otherwise probes
// and caches the result. Probe failure caches false.
func (m *Monitor) IsAvailable(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	if !m.lastCheckedAt.IsZero() && now.Sub(m.lastCheckedAt) < m.Window {
		return m.lastAvailable
	}

	err := m.Prober.Healthy(ctx)
	m.lastAvailable = err == nil
	m.lastCheckedAt = now

	if err != nil && m.Log != nil {
		m.Log.Warn("pdp health probe failed", "err", err, "window", m.Window)
	}
	return m.lastAvailable
}
