package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ragify/ragify/internal/retry"
	"github.com/ragify/ragify/pkg/types"
)

// flakyStore fails the first failN upsert calls, then succeeds.
type flakyStore struct {
	mu       sync.Mutex
	calls    int
	failN    int
	batches  [][]types.Point
	hardFail bool
}

func (f *flakyStore) Upsert(_ context.Context, _ string, points []types.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.hardFail {
		return &retry.HTTPError{Status: 400, Body: "bad request"}
	}
	if f.calls <= f.failN {
		return &retry.HTTPError{Status: 503}
	}
	f.batches = append(f.batches, append([]types.Point(nil), points...))
	return nil
}

func makePoints(n int) []types.Point {
	points := make([]types.Point, n)
	for i := range points {
		points[i] = types.Point{ID: fmt.Sprintf("p%d", i), Vector: []float32{1}}
	}
	return points
}

func TestUploadBatches(t *testing.T) {
	store := &flakyStore{}
	u := NewUploader(store, "docs", 10, 3, zap.NewNop())

	n, err := u.Upload(context.Background(), makePoints(25))
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 10)
	assert.Len(t, store.batches[2], 5)
}

func TestUploadRetriesTransient(t *testing.T) {
	store := &flakyStore{failN: 1}
	u := NewUploader(store, "docs", 100, 3, zap.NewNop())

	n, err := u.Upload(context.Background(), makePoints(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 2, store.calls)
}

func TestUploadStopsOnClientError(t *testing.T) {
	store := &flakyStore{hardFail: true}
	u := NewUploader(store, "docs", 100, 3, zap.NewNop())

	n, err := u.Upload(context.Background(), makePoints(5))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, store.calls, "client errors are not retried")
}

func TestUploadPartialFailureKeepsEarlierBatches(t *testing.T) {
	store := &flakyStore{}
	u := NewUploader(store, "docs", 2, 2, zap.NewNop())

	// First batch lands, second exhausts retries.
	store.failN = 0
	n, err := u.Upload(context.Background(), makePoints(2))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	store.hardFail = true
	n, err = u.Upload(context.Background(), makePoints(4))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Len(t, store.batches, 1, "acknowledged batches stay in the store")
}

func TestUploadEmpty(t *testing.T) {
	store := &flakyStore{}
	u := NewUploader(store, "docs", 10, 3, zap.NewNop())

	n, err := u.Upload(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.calls)
}
