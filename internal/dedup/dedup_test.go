package dedup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ragify/ragify/internal/qdrant"
)

// fakeStore counts lookups and serves scripted hash counts.
type fakeStore struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
	calls  int
}

func (f *fakeStore) CountByFileHash(_ context.Context, _ string, hash string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[hash], nil
}

func TestIsIndexedQueriesStoreOnce(t *testing.T) {
	store := &fakeStore{counts: map[string]int{"h1": 3}}
	idx := New(store, "docs", zap.NewNop())

	assert.True(t, idx.IsIndexed(context.Background(), "h1"))
	assert.True(t, idx.IsIndexed(context.Background(), "h1"))
	assert.Equal(t, 1, store.calls, "repeat lookups served from cache")
}

func TestIsIndexedUnknownHash(t *testing.T) {
	store := &fakeStore{counts: map[string]int{}}
	idx := New(store, "docs", zap.NewNop())

	assert.False(t, idx.IsIndexed(context.Background(), "new"))
	// Negative results are cached too.
	assert.False(t, idx.IsIndexed(context.Background(), "new"))
	assert.Equal(t, 1, store.calls)
}

func TestIsIndexedMissingCollection(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("%w: docs", qdrant.ErrCollectionNotFound)}
	idx := New(store, "docs", zap.NewNop())

	assert.False(t, idx.IsIndexed(context.Background(), "h1"))
}

func TestIsIndexedStoreErrorMeansNotIndexed(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	idx := New(store, "docs", zap.NewNop())

	assert.False(t, idx.IsIndexed(context.Background(), "h1"))
	// Errors are not cached; the next call asks again.
	assert.False(t, idx.IsIndexed(context.Background(), "h1"))
	assert.Equal(t, 2, store.calls)
}

func TestMarkIndexedShortCircuits(t *testing.T) {
	store := &fakeStore{counts: map[string]int{}}
	idx := New(store, "docs", zap.NewNop())

	idx.MarkIndexed("h1")
	assert.True(t, idx.IsIndexed(context.Background(), "h1"))
	assert.Zero(t, store.calls, "marked hashes never hit the store")
	assert.Equal(t, 1, idx.Len())
}

func TestConcurrentAccess(t *testing.T) {
	store := &fakeStore{counts: map[string]int{"h": 1}}
	idx := New(store, "docs", zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hash := fmt.Sprintf("h%d", n%4)
			idx.IsIndexed(context.Background(), hash)
			idx.MarkIndexed(hash)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 4, idx.Len())
}
