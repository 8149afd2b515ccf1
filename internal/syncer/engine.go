// Package syncer drains the offline queue against the remote store once
// connectivity is back: one remote write per queued entry, images resolved to
// durable URLs first.
package syncer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/betterbench/betterbench/internal/blob"
	"github.com/betterbench/betterbench/internal/logging"
	"github.com/betterbench/betterbench/internal/models"
	"github.com/betterbench/betterbench/internal/netmon"
	"github.com/betterbench/betterbench/internal/queue"
	"github.com/betterbench/betterbench/internal/remote"
	"golang.org/x/sync/errgroup"
)

// batchLimit caps concurrent item syncs so a large queue does not fan out
// into unbounded parallel uploads.
const batchLimit = 4

type Engine struct {
	queue    *queue.Store
	remote   remote.Store
	resolver *blob.Resolver
	monitor  *netmon.Monitor
	log      logging.Logger
	running  atomic.Bool
}

func NewEngine(q *queue.Store, r remote.Store, res *blob.Resolver, m *netmon.Monitor, log logging.Logger) *Engine {
	return &Engine{
		queue:    q,
		remote:   r,
		resolver: res,
		monitor:  m,
		log:      log.With("component", "syncer"),
	}
}

// Register wires the engine to the monitor so every offline→online
// transition starts a sync pass. Called once at process start.
func (e *Engine) Register() {
	e.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		if err := e.Run(context.Background()); err != nil {
			e.log.Error(context.Background(), "reconnect sync failed", "error", err)
		}
	})
}

// Run executes one sync pass over a snapshot of the queue. Only one pass may
// be in flight: a request arriving while running is coalesced into a no-op,
// since the in-flight pass observes the current queue contents. Running
// while offline or with an empty queue is also a no-op, not an error.
//
// Items are processed as a batch and every attempt settles before the pass
// concludes. All-success clears the whole queue in one operation; any
// failure leaves the queue fully intact for the next reconnect.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}
	defer e.running.Store(false)

	if !e.monitor.Current() {
		return nil
	}

	items, err := e.queue.List()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	start := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(batchLimit)
	for _, it := range items {
		g.Go(func() error {
			return e.syncItem(ctx, it)
		})
	}

	if err := g.Wait(); err != nil {
		e.log.Error(ctx, "sync pass failed, queue left intact", "items", len(items), "error", err)
		return fmt.Errorf("sync pass: %w", err)
	}

	if err := e.queue.RemoveAll(); err != nil {
		return fmt.Errorf("failed to clear synced queue: %w", err)
	}

	e.log.Info(ctx, "synced offline entries",
		"items", len(items),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Running reports whether a sync pass is currently in flight.
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) syncItem(ctx context.Context, it queue.Item) error {
	entry, err := e.resolver.ResolveEntry(ctx, it.Entry)
	if err != nil {
		return fmt.Errorf("%s: %w", it.TempID, err)
	}

	entry.Pending = false
	entry.UpdatedAt = models.Now()

	// An entry queued with a confirmed remote identity is an offline edit of
	// an existing document; everything else is an insert with server-assigned
	// identity superseding the temporary one.
	if entry.Synced() {
		if err := e.remote.Update(ctx, entry.ID, entry); err != nil {
			return fmt.Errorf("%s: %w", it.TempID, err)
		}
		return nil
	}

	entry.TempID = ""
	entry.CreatedAt = models.Now()
	if _, err := e.remote.Insert(ctx, entry); err != nil {
		return fmt.Errorf("%s: %w", it.TempID, err)
	}
	return nil
}
