// Package repository is the single CRUD surface the UI layer depends on. It
// hides the online/offline split: every operation consults connectivity at
// the moment of the call and routes to the remote store or the pending
// queue, merging both sources for reads.
package repository

import (
	"context"
	"sort"

	"github.com/betterbench/betterbench/internal/blob"
	"github.com/betterbench/betterbench/internal/common"
	"github.com/betterbench/betterbench/internal/logging"
	"github.com/betterbench/betterbench/internal/models"
	"github.com/betterbench/betterbench/internal/netmon"
	"github.com/betterbench/betterbench/internal/queue"
	"github.com/betterbench/betterbench/internal/remote"
)

type Repository struct {
	remote   remote.Store
	queue    *queue.Store
	resolver *blob.Resolver
	monitor  *netmon.Monitor
	log      logging.Logger
}

func New(r remote.Store, q *queue.Store, res *blob.Resolver, m *netmon.Monitor, log logging.Logger) *Repository {
	return &Repository{
		remote:   r,
		queue:    q,
		resolver: res,
		monitor:  m,
		log:      log.With("component", "repository"),
	}
}

// Save writes the entry to the remote store when online (an insert unless it
// already carries a remote identity) and returns the confirmed entry. When
// offline it queues the entry and returns it carrying the temporary
// identity. A failed online save propagates to the caller; it is never
// silently turned into a queued offline save.
func (r *Repository) Save(ctx context.Context, e models.Entry) (models.Entry, error) {
	if !r.monitor.Online(ctx) {
		tempID, err := r.queue.Enqueue(e)
		if err != nil {
			return models.Entry{}, err
		}
		now := models.Now()
		e.TempID = tempID
		e.Pending = true
		e.CreatedAt = now
		e.UpdatedAt = now
		return e, nil
	}

	// Once persisted remotely an entry may only reference durable URLs, so
	// inline payloads are resolved on the direct path too.
	resolved, err := r.resolver.ResolveEntry(ctx, e)
	if err != nil {
		return models.Entry{}, err
	}

	now := models.Now()
	resolved.Pending = false
	resolved.UpdatedAt = now

	if resolved.Synced() {
		if err := r.remote.Update(ctx, resolved.ID, resolved); err != nil {
			return models.Entry{}, err
		}
		return resolved, nil
	}

	resolved.TempID = ""
	resolved.CreatedAt = now
	id, err := r.remote.Insert(ctx, resolved)
	if err != nil {
		return models.Entry{}, err
	}
	resolved.ID = id
	return resolved, nil
}

// Delete removes the entry. Temporary identities, and any deletion while
// offline, only touch the pending queue; a queued entry never reaches the
// remote store.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if models.IsTempID(id) || !r.monitor.Online(ctx) {
		return r.queue.Remove(id)
	}
	return r.remote.Delete(ctx, id)
}

// List merges remote entries with the pending queue. An entry present in
// both prefers the remote version; pending entries are flagged for display.
// Offline, the queue contents alone are returned, sorted with the same
// comparator the online path applies.
func (r *Repository) List(ctx context.Context, order remote.Order) ([]models.Entry, error) {
	pending, err := r.pendingEntries()
	if err != nil {
		return nil, err
	}

	var entries []models.Entry
	if r.monitor.Online(ctx) {
		remoteEntries, err := r.remote.List(ctx, order)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]struct{}, len(remoteEntries))
		for _, e := range remoteEntries {
			seen[e.ID] = struct{}{}
		}

		entries = remoteEntries
		for _, p := range pending {
			if p.ID != "" {
				if _, ok := seen[p.ID]; ok {
					continue
				}
			}
			entries = append(entries, p)
		}
	} else {
		entries = pending
	}

	sortEntries(entries, order)
	return entries, nil
}

// Get returns one entry by remote or temporary identity.
func (r *Repository) Get(ctx context.Context, id string) (*models.Entry, error) {
	if !models.IsTempID(id) && r.monitor.Online(ctx) {
		return r.remote.Get(ctx, id)
	}

	items, err := r.queue.List()
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.TempID == id || it.Entry.ID == id {
			e := it.Entry
			e.Pending = true
			return &e, nil
		}
	}
	return nil, common.ErrNotFound
}

// PendingCount drives the pending-entries indicator.
func (r *Repository) PendingCount() int {
	return r.queue.Count()
}

func (r *Repository) pendingEntries() ([]models.Entry, error) {
	items, err := r.queue.List()
	if err != nil {
		return nil, err
	}
	entries := make([]models.Entry, 0, len(items))
	for _, it := range items {
		e := it.Entry
		e.Pending = true
		entries = append(entries, e)
	}
	return entries, nil
}

func sortEntries(entries []models.Entry, order remote.Order) {
	sort.SliceStable(entries, func(i, j int) bool {
		if order == remote.OrderRating {
			return entries[i].Ratings.Overall.Score() > entries[j].Ratings.Overall.Score()
		}
		return entries[i].DateVisited.After(entries[j].DateVisited.Time)
	})
}
