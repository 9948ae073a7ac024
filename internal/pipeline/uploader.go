package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ragify/ragify/internal/retry"
	"github.com/ragify/ragify/pkg/types"
)

// Uploader writes points to the vector store in fixed-size batches with the
// same retry discipline as the embedding stage.
type Uploader struct {
	store      UploadStore
	collection string
	batchSize  int
	retryCfg   retry.Config
	log        *zap.Logger
}

// UploadStore is the vector-store surface the uploader needs.
type UploadStore interface {
	Upsert(ctx context.Context, collection string, points []types.Point) error
}

// NewUploader creates an Uploader for one collection.
func NewUploader(store UploadStore, collection string, batchSize, maxRetries int, log *zap.Logger) *Uploader {
	if batchSize <= 0 {
		batchSize = 100
	}
	rc := retry.DefaultConfig()
	if maxRetries > 0 {
		rc.MaxAttempts = maxRetries
	}
	return &Uploader{
		store:      store,
		collection: collection,
		batchSize:  batchSize,
		retryCfg:   rc,
		log:        log,
	}
}

// Upload upserts points batch by batch and returns how many points were
// acknowledged. A batch that fails after retries fails the whole call, but
// batches already acknowledged stay in the store; there is no rollback.
func (u *Uploader) Upload(ctx context.Context, points []types.Point) (int, error) {
	uploaded := 0
	for start := 0; start < len(points); start += u.batchSize {
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}

		end := start + u.batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]

		_, err := retry.Do(ctx, u.retryCfg, func() (struct{}, error) {
			return struct{}{}, u.store.Upsert(ctx, u.collection, batch)
		})
		if err != nil {
			return uploaded, fmt.Errorf("upsert batch of %d points: %w", len(batch), err)
		}

		uploaded += len(batch)
		u.log.Debug("uploaded batch",
			zap.Int("points", len(batch)), zap.Int("total", uploaded))
	}
	return uploaded, nil
}
