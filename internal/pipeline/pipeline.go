package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ragify/ragify/internal/chunker"
	"github.com/ragify/ragify/internal/config"
	"github.com/ragify/ragify/internal/dedup"
	"github.com/ragify/ragify/internal/embedder"
	"github.com/ragify/ragify/internal/extract"
	"github.com/ragify/ragify/internal/fingerprint"
	"github.com/ragify/ragify/internal/scanner"
	"github.com/ragify/ragify/internal/textproc"
	"github.com/ragify/ragify/pkg/types"
)

// minTextLength is the quality-gate floor on cleaned text. Shorter documents
// are not worth a provider round trip.
const minTextLength = 100

// Store is the vector-store surface the pipeline needs.
type Store interface {
	UploadStore
	CountByFileHash(ctx context.Context, collection, hash string) (int, error)
	EnsureCollection(ctx context.Context, collection string, dimension int) error
}

// Pipeline drives files through the indexing state machine.
type Pipeline struct {
	cfg        *config.Config
	collection string
	store      Store
	registry   *extract.Registry
	chunker    *chunker.Chunker
	batcher    *embedder.Batcher
	uploader   *Uploader
	dedup      *dedup.Index
	hashes     *fingerprint.Cache
	stats      *Stats
	log        *zap.Logger
}

// New assembles a Pipeline around an embedding batcher and a vector store.
func New(cfg *config.Config, collection string, store Store, batcher *embedder.Batcher,
	registry *extract.Registry, tok chunker.Tokenizer, log *zap.Logger) *Pipeline {

	ch := chunker.New(chunker.Config{
		ChunkSize:    cfg.Chunking.ChunkSize,
		Overlap:      cfg.Chunking.Overlap,
		MaxTokens:    cfg.Chunking.MaxTokens,
		MinTokens:    cfg.Chunking.MinTokens,
		MacroOnError: cfg.Chunking.MacroOnError,
	}, tok, log)

	return &Pipeline{
		cfg:        cfg,
		collection: collection,
		store:      store,
		registry:   registry,
		chunker:    ch,
		batcher:    batcher,
		uploader: NewUploader(store, collection,
			cfg.Qdrant.BatchSize, cfg.Qdrant.MaxRetries, log),
		dedup:  dedup.New(store, collection, log),
		hashes: fingerprint.NewCache(),
		stats:  NewStats(),
		log:    log,
	}
}

// Stats exposes the run counters, primarily for tests and progress output.
func (p *Pipeline) Stats() *Stats {
	return p.stats
}

// Run indexes every eligible file under root and returns the run summary.
// File failures are recorded, not returned; the error is reserved for setup
// problems and cancellation.
func (p *Pipeline) Run(ctx context.Context, root string) (Summary, error) {
	if err := p.store.EnsureCollection(ctx, p.collection, p.batcher.Dimension()); err != nil {
		return Summary{}, fmt.Errorf("ensure collection %q: %w", p.collection, err)
	}

	files, err := scanner.Scan(root, scanner.Options{
		SkipHidden:   p.cfg.Processing.SkipHidden,
		SkipPatterns: p.cfg.Processing.SkipPatterns,
		Extensions:   p.cfg.Processing.ExtensionsFilter,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("scan %s: %w", root, err)
	}

	p.stats.FilesScanned.Store(int64(len(files)))
	p.log.Info("scan complete",
		zap.Int("files", len(files)), zap.String("collection", p.collection))

	if p.cfg.Processing.Workers > 1 {
		err = p.runParallel(ctx, files)
	} else {
		err = p.runSequential(ctx, files)
	}
	if err != nil {
		return p.stats.Snapshot(), err
	}
	return p.stats.Snapshot(), nil
}

// runSequential is the baseline model: each file completes its state machine
// before the next begins, with cancellation checked between files.
func (p *Pipeline) runSequential(ctx context.Context, files []types.FileRecord) error {
	for _, rec := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := p.ProcessFile(ctx, rec)
		if err != nil {
			return err
		}
		p.record(res)
	}
	return nil
}

// runParallel fans files out to a bounded worker pool. The dedup index and
// stats are the only shared state and both are concurrency-safe.
func (p *Pipeline) runParallel(ctx context.Context, files []types.FileRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Processing.Workers)

	for _, rec := range files {
		rec := rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.ProcessFile(gctx, rec)
			if err != nil {
				return err
			}
			p.record(res)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) record(res FileResult) {
	p.stats.Record(res)
	switch res.State {
	case StateDone:
		p.log.Info("indexed file",
			zap.String("path", res.Path), zap.Int("fragments", res.Fragments))
	case StateSkipped:
		p.log.Debug("skipped file",
			zap.String("path", res.Path), zap.String("reason", res.Reason))
	case StateFailed:
		p.log.Warn("failed file",
			zap.String("path", res.Path), zap.String("reason", res.Reason))
	}
}

// ProcessFile runs one file record through the full state machine and
// returns its terminal result. The returned error is context cancellation
// only; every other problem terminates in a Failed result.
func (p *Pipeline) ProcessFile(ctx context.Context, rec types.FileRecord) (FileResult, error) {
	res := FileResult{Path: rec.Path, State: StateScanned}

	// Size check, from the metadata the scanner captured.
	if p.cfg.Extraction.MaxFileSize > 0 && rec.Size > p.cfg.Extraction.MaxFileSize {
		return p.fail(res, ReasonTooLarge), nil
	}
	res.State = StateSizeChecked

	// Dedup. The record's hash is computed here, on first need.
	hash, err := p.hashes.File(rec.Path)
	if err != nil {
		return p.fail(res, ReasonUnreadable), nil
	}
	rec.Hash = hash
	if p.dedup.IsIndexed(ctx, hash) {
		res.State = StateSkipped
		res.Reason = ReasonAlreadyIndexed
		return res, nil
	}
	res.State = StateDeduplicated

	// Extract.
	raw, extractor, err := p.registry.Extract(ctx, rec.Path)
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil {
			p.log.Debug("extraction failed",
				zap.String("path", rec.Path), zap.Error(err))
		}
		return p.fail(res, ReasonNoText), nil
	}
	res.State = StateExtracted

	// Clean + quality gate.
	clean := textproc.Clean(raw)
	if !textproc.QualityOK(clean, minTextLength) {
		return p.fail(res, ReasonLowQuality), nil
	}
	res.State = StateCleaned

	// Chunk.
	frags := p.chunker.Chunk(clean)
	if len(frags) == 0 {
		return p.fail(res, ReasonChunkingFailed), nil
	}
	res.State = StateChunked
	p.stats.FragmentsCreated.Add(int64(len(frags)))
	p.log.Debug("chunked file",
		zap.String("path", rec.Path), zap.String("extractor", extractor),
		zap.Int("fragments", len(frags)))

	// Embed.
	embedded, dropped, err := p.batcher.EmbedFragments(ctx, frags)
	if err != nil {
		return res, err
	}
	p.stats.FragmentsEmbedded.Add(int64(len(embedded)))
	p.stats.FragmentsDropped.Add(int64(dropped))
	if len(embedded) == 0 {
		return p.fail(res, ReasonEmbeddingFailed), nil
	}
	res.State = StateEmbedded

	// Upload.
	points := BuildPoints(rec.Path, rec.Hash, embedded)
	uploaded, err := p.uploader.Upload(ctx, points)
	p.stats.PointsUploaded.Add(int64(uploaded))
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return p.fail(res, ReasonUploadFailed), nil
	}
	res.State = StateUploaded

	// Mark the content indexed right away so identical files later in the
	// run skip without a store lookup.
	p.dedup.MarkIndexed(hash)

	res.State = StateDone
	res.Fragments = len(points)
	return res, nil
}

func (p *Pipeline) fail(res FileResult, reason string) FileResult {
	res.State = StateFailed
	res.Reason = reason
	return res
}
