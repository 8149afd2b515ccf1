package netmon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/betterbench/betterbench/internal/logging"
	"github.com/stretchr/testify/assert"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestMonitor(probe Prober) *Monitor {
	return NewMonitor(probe, time.Minute, time.Second, testLogger())
}

func TestOnline_LiveProbe(t *testing.T) {
	var reachable atomic.Bool
	m := newTestMonitor(func(ctx context.Context) error {
		if reachable.Load() {
			return nil
		}
		return errors.New("unreachable")
	})

	ctx := context.Background()
	assert.False(t, m.Online(ctx))
	assert.False(t, m.Current())

	reachable.Store(true)
	assert.True(t, m.Online(ctx))
	assert.True(t, m.Current())
}

func TestTransitionsFireSubscribersOnce(t *testing.T) {
	m := newTestMonitor(func(ctx context.Context) error { return nil })

	var calls []bool
	m.Subscribe(func(online bool) { calls = append(calls, online) })

	m.SetOnline(true)  // offline -> online
	m.SetOnline(true)  // no change, must not fire
	m.SetOnline(false) // online -> offline
	m.SetOnline(false) // no change

	assert.Equal(t, []bool{true, false}, calls)
}

func TestMultipleSubscribers(t *testing.T) {
	m := newTestMonitor(func(ctx context.Context) error { return nil })

	var a, b int
	m.Subscribe(func(online bool) { a++ })
	m.Subscribe(func(online bool) { b++ })

	m.SetOnline(true)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestOnlineStateUpdateFiresTransition(t *testing.T) {
	probeErr := errors.New("down")
	var failing atomic.Bool
	m := newTestMonitor(func(ctx context.Context) error {
		if failing.Load() {
			return probeErr
		}
		return nil
	})

	var transitions int32
	m.Subscribe(func(online bool) { atomic.AddInt32(&transitions, 1) })

	ctx := context.Background()
	m.Online(ctx) // offline -> online
	failing.Store(true)
	m.Online(ctx) // online -> offline

	assert.Equal(t, int32(2), atomic.LoadInt32(&transitions))
}
