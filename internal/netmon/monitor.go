// Package netmon tracks connectivity to the remote store. It is the single
// source of truth for online/offline state: callers probe it at the moment of
// each operation, and subscribers are notified on transitions so a reconnect
// can trigger synchronization exactly once.
package netmon

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/betterbench/betterbench/internal/logging"
)

// Prober reports remote reachability; a nil error means online. The
// production prober pings the remote store.
type Prober func(ctx context.Context) error

type Monitor struct {
	probe    Prober
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger

	mu     sync.Mutex
	online bool
	subs   []func(online bool)
}

// NewMonitor creates a monitor that starts in the offline state; the first
// successful probe produces an offline→online transition, which also covers
// the sync-on-startup case.
func NewMonitor(probe Prober, interval, timeout time.Duration, log logging.Logger) *Monitor {
	return &Monitor{
		probe:    probe,
		interval: interval,
		timeout:  timeout,
		log:      log.With("component", "netmon"),
	}
}

// Subscribe registers fn to be called on every state transition. Callbacks
// run synchronously on the goroutine that observed the transition.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Online performs a live probe, records the result and returns it. Write
// paths call this at the moment of each operation rather than trusting the
// recorded state.
func (m *Monitor) Online(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.set(m.probe(pctx) == nil)
}

// Current returns the last recorded state without probing. The background
// ticker keeps it fresh enough for status displays.
func (m *Monitor) Current() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline forces the state, firing transition callbacks. Used by tests and
// by operators to pin the server offline.
func (m *Monitor) SetOnline(online bool) {
	m.set(online)
}

func (m *Monitor) set(online bool) bool {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	var subs []func(bool)
	if changed {
		subs = slices.Clone(m.subs)
	}
	m.mu.Unlock()

	if changed {
		m.log.Info(context.Background(), "connectivity changed", "online", online)
		for _, fn := range subs {
			fn(online)
		}
	}
	return online
}

// Start launches the periodic reachability check, beginning with an
// immediate probe.
func (m *Monitor) Start(ctx context.Context) {
	go m.watch(ctx)
}

func (m *Monitor) watch(ctx context.Context) {
	m.Online(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Online(ctx)
		case <-ctx.Done():
			return
		}
	}
}
