// Package remote defines the external document-store collaborator holding
// the published bench collection, and its PostgreSQL implementation.
package remote

import (
	"context"

	"github.com/betterbench/betterbench/internal/models"
)

// Order selects the listing sort; both orders are descending.
type Order string

const (
	OrderDateVisited Order = "date"
	OrderRating      Order = "rating"
)

// Store is the remote entry store. Implementations assign identities on
// insert and must normalize store-native timestamps on every read.
type Store interface {
	// Insert persists a new entry and returns its server-assigned identity.
	Insert(ctx context.Context, e models.Entry) (string, error)

	// Update overwrites the entry with the given identity.
	Update(ctx context.Context, id string, e models.Entry) error

	// Delete removes the entry; common.ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// Get returns one entry; common.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*models.Entry, error)

	// List returns all entries in the requested order.
	List(ctx context.Context, order Order) ([]models.Entry, error)

	// Ping reports reachability; used as the connectivity probe.
	Ping(ctx context.Context) error
}
