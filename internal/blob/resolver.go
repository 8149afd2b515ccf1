package blob

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	"github.com/betterbench/betterbench/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const keyPrefix = "bench-images"

// Resolver turns an entry's inline image payloads into durable URLs.
// Already-remote references pass through untouched without a store call.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveEntry returns a copy of e whose image sequence contains only remote
// URLs, preserving the original ordering positions. Uploads for one entry run
// in parallel; if any upload fails the whole resolution fails so the caller
// never writes a half-promoted entry.
func (r *Resolver) ResolveEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	if len(e.Images) == 0 {
		return e, nil
	}

	owner := e.ID
	if owner == "" {
		owner = "new"
	}

	resolved := slices.Clone(e.Images)
	g, gctx := errgroup.WithContext(ctx)

	for i, img := range e.Images {
		if !img.Inline() {
			continue
		}
		g.Go(func() error {
			contentType, data, err := decodeDataURL(string(img))
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			key := fmt.Sprintf("%s/%s-%s.%s", keyPrefix, owner, uuid.NewString(), extensionFor(contentType))
			url, err := r.store.Upload(gctx, key, data, contentType)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			resolved[i] = models.ImageRef(url)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return models.Entry{}, err
	}

	e.Images = resolved
	return e, nil
}

// decodeDataURL splits a "data:<mediatype>;base64,<payload>" reference into
// its media type and decoded bytes.
func decodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data url")
	}

	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("unsupported data url encoding %q", meta)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return mediaType, data, nil
}

// extensionFor infers a file extension from the declared media type,
// defaulting to jpeg.
func extensionFor(mediaType string) string {
	_, ext, ok := strings.Cut(mediaType, "/")
	if !ok || ext == "" {
		return "jpeg"
	}
	return ext
}
