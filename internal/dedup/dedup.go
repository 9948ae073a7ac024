// Package dedup decides whether a file's content is already present in the
// vector store, combining an in-run cache with a payload-filtered count
// against the store.
package dedup

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/ragify/ragify/internal/qdrant"
)

// Store is the vector-store surface dedup needs.
type Store interface {
	CountByFileHash(ctx context.Context, collection, hash string) (int, error)
}

// Index tracks which content hashes are known to be indexed. Safe for
// concurrent use by pipeline workers.
type Index struct {
	store      Store
	collection string
	log        *zap.Logger

	mu    sync.Mutex
	known map[string]bool
}

// New creates an Index for one collection.
func New(store Store, collection string, log *zap.Logger) *Index {
	return &Index{
		store:      store,
		collection: collection,
		log:        log,
		known:      make(map[string]bool),
	}
}

// IsIndexed reports whether any point with this content hash exists. The
// in-run cache answers repeats without a store round trip. A missing
// collection means nothing is indexed yet; a store error is logged and
// treated as not indexed, trading a possible duplicate upload for never
// skipping real content.
func (i *Index) IsIndexed(ctx context.Context, hash string) bool {
	i.mu.Lock()
	cached, ok := i.known[hash]
	i.mu.Unlock()
	if ok {
		return cached
	}

	count, err := i.store.CountByFileHash(ctx, i.collection, hash)
	if err != nil {
		if !errors.Is(err, qdrant.ErrCollectionNotFound) {
			i.log.Warn("dedup lookup failed, treating file as not indexed",
				zap.String("hash", hash), zap.Error(err))
		}
		return false
	}

	indexed := count > 0
	i.mu.Lock()
	i.known[hash] = indexed
	i.mu.Unlock()
	return indexed
}

// MarkIndexed records a hash as indexed immediately after a successful
// upload, so later files with identical content skip without a store lookup.
func (i *Index) MarkIndexed(hash string) {
	i.mu.Lock()
	i.known[hash] = true
	i.mu.Unlock()
}

// Len returns the number of cached hash decisions.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.known)
}
