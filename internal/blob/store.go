// Package blob makes an entry's images remotely durable: inline payloads
// captured offline are uploaded to object storage and replaced by URLs
// before the entry itself is written to the remote store.
package blob

import "context"

// Store is the external binary-object collaborator.
type Store interface {
	// Upload stores data under key and returns the durable URL.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
