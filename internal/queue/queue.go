// Package queue implements the durable pending queue of entries created or
// edited while offline. The whole queue is persisted as one JSON document in
// durable local storage and fully replaced on every mutation.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/betterbench/betterbench/internal/kv"
	"github.com/betterbench/betterbench/internal/logging"
	"github.com/betterbench/betterbench/internal/models"
	"github.com/google/uuid"
)

// StorageKey is the single durable-storage key holding the serialized queue.
const StorageKey = "offline-bench-entries"

// Status of a queued item. Pending is the only modeled state: an item either
// sits in the queue or is gone.
type Status string

const StatusPending Status = "pending"

// Item is an entry plus queue metadata.
type Item struct {
	Entry    models.Entry     `json:"entry"`
	TempID   string           `json:"tempId"`
	Status   Status           `json:"status"`
	QueuedAt models.Timestamp `json:"queuedAt"`
}

// Store is the process-wide pending queue. All mutations are serialized by a
// mutex so a concurrent read sees either the pre- or post-state, never a
// torn list.
type Store struct {
	kv  kv.Store
	log logging.Logger
	mu  sync.Mutex
}

func NewStore(storage kv.Store, log logging.Logger) *Store {
	return &Store{kv: storage, log: log.With("component", "queue")}
}

// Enqueue assigns a fresh temporary identifier, stamps timestamps, marks the
// item pending and appends it. The temporary id is returned synchronously so
// the caller can reference the draft immediately.
func (s *Store) Enqueue(e models.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return "", err
	}

	tempID := models.TempIDPrefix + uuid.NewString()
	now := models.Now()

	e.TempID = tempID
	e.CreatedAt = now
	e.UpdatedAt = now
	e.DateVisited = e.DateVisited.OrNow()

	items = append(items, Item{
		Entry:    e,
		TempID:   tempID,
		Status:   StatusPending,
		QueuedAt: now,
	})

	if err := s.save(items); err != nil {
		return "", err
	}
	return tempID, nil
}

// List returns all currently queued items in insertion order.
func (s *Store) List() ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Remove deletes one item by its temporary (or already-assigned remote)
// identifier. Removing an absent item is a no-op, not an error.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, it := range items {
		if it.TempID == id || (it.Entry.ID != "" && it.Entry.ID == id) {
			continue
		}
		kept = append(kept, it)
	}
	if len(kept) == len(items) {
		return nil
	}
	return s.save(kept)
}

// RemoveAll empties the queue in one operation.
func (s *Store) RemoveAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(nil)
}

// Count returns the number of queued items; read failures count as zero.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		s.log.Warn(context.Background(), "failed to count pending entries", "error", err)
		return 0
	}
	return len(items)
}

// load reads and normalizes the persisted queue. Malformed documents degrade
// to an empty queue and malformed items to safe defaults instead of failing
// the read.
func (s *Store) load() ([]Item, error) {
	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn(context.Background(), "discarding malformed queue document", "error", err)
		return nil, nil
	}

	for i := range items {
		normalize(&items[i])
	}
	return items, nil
}

func normalize(it *Item) {
	if it.Status == "" {
		it.Status = StatusPending
	}
	if it.TempID == "" {
		it.TempID = it.Entry.TempID
	}
	it.Entry.TempID = it.TempID
	it.QueuedAt = it.QueuedAt.OrNow()
	it.Entry.CreatedAt = it.Entry.CreatedAt.OrNow()
	it.Entry.UpdatedAt = it.Entry.UpdatedAt.OrNow()
	it.Entry.DateVisited = it.Entry.DateVisited.OrNow()
}

func (s *Store) save(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to serialize queue: %w", err)
	}
	if err := s.kv.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist queue: %w", err)
	}
	return nil
}
