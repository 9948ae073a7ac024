package embedder

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ragify/ragify/internal/chunker"
	"github.com/ragify/ragify/internal/config"
	"github.com/ragify/ragify/internal/retry"
	"github.com/ragify/ragify/pkg/types"
)

// BuildBatches packs fragments greedily into batches, closing a batch when
// adding the next fragment would exceed maxCount fragments or tokenBudget
// total tokens. Input order is preserved and every fragment lands in exactly
// one batch; callers must re-split fragments over the budget beforehand.
func BuildBatches(frags []types.Fragment, maxCount, tokenBudget int) [][]types.Fragment {
	if len(frags) == 0 {
		return nil
	}

	var batches [][]types.Fragment
	var cur []types.Fragment
	curTokens := 0

	for _, f := range frags {
		if len(cur) > 0 && (len(cur)+1 > maxCount || curTokens+f.TokenCount > tokenBudget) {
			batches = append(batches, cur)
			cur = nil
			curTokens = 0
		}
		cur = append(cur, f)
		curTokens += f.TokenCount
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// Batcher drives the embedding stage: dynamic batching, content-hash caching,
// batch retry with per-fragment fallback, and optional provider rate limiting.
type Batcher struct {
	emb      Embedder
	tok      chunker.Tokenizer
	cache    *Cache
	limiter  *rate.Limiter
	retryCfg retry.Config

	maxCount    int
	tokenBudget int
	log         *zap.Logger
}

// NewBatcher wires a Batcher from the embedding configuration. cache may be
// nil to disable caching.
func NewBatcher(emb Embedder, tok chunker.Tokenizer, cfg config.EmbeddingConfig, cache *Cache, log *zap.Logger) *Batcher {
	rc := retry.DefaultConfig()
	if cfg.MaxRetries > 0 {
		rc.MaxAttempts = cfg.MaxRetries
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Batcher{
		emb:         emb,
		tok:         tok,
		cache:       cache,
		limiter:     limiter,
		retryCfg:    rc,
		maxCount:    cfg.BatchSize,
		tokenBudget: cfg.TokenBudget,
		log:         log,
	}
}

// EmbedFragments embeds all fragments, returning the successes in input
// order plus the count of fragments dropped after all recovery paths were
// exhausted. The only error returned is context cancellation; provider
// failures degrade to drops so one bad fragment never fails the caller.
func (b *Batcher) EmbedFragments(ctx context.Context, frags []types.Fragment) ([]types.EmbeddedFragment, int, error) {
	if len(frags) == 0 {
		return nil, 0, nil
	}

	prepared, failed := b.resplitOversized(frags)
	batches := BuildBatches(prepared, b.maxCount, b.tokenBudget)

	var out []types.EmbeddedFragment

	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return out, failed, err
		}
		embedded, nfail, err := b.embedBatch(ctx, batch)
		if err != nil {
			return out, failed, err
		}
		out = append(out, embedded...)
		failed += nfail
	}
	return out, failed, nil
}

// resplitOversized re-splits any fragment whose token count alone exceeds
// the batch budget, so it is never sent to the provider as-is. Sub-fragments
// flow into subsequent batches with recomputed token counts; pieces the
// re-split cannot bring under budget are dropped and counted.
func (b *Batcher) resplitOversized(frags []types.Fragment) ([]types.Fragment, int) {
	out := make([]types.Fragment, 0, len(frags))
	dropped := 0
	for _, f := range frags {
		if f.TokenCount <= b.tokenBudget {
			out = append(out, f)
			continue
		}
		b.log.Warn("fragment exceeds batch token budget, re-splitting",
			zap.Int("tokens", f.TokenCount), zap.Int("budget", b.tokenBudget))
		idx := 0
		for _, sub := range chunker.FallbackSplit(f.Text, b.tokenBudget/2, 0) {
			tc := b.tok.Count(sub)
			if tc > b.tokenBudget {
				b.log.Error("re-split fragment still over batch token budget, dropping",
					zap.Int("tokens", tc), zap.Int("budget", b.tokenBudget))
				dropped++
				continue
			}
			out = append(out, types.Fragment{
				Text:          sub,
				MacroIndex:    f.MacroIndex,
				FragmentIndex: idx,
				TokenCount:    tc,
				Method:        types.MethodFallback,
			})
			idx++
		}
	}
	return out, dropped
}

// embedBatch embeds one batch: cache hits are satisfied locally, the rest go
// through the batch endpoint with retry, then per-fragment fallback.
func (b *Batcher) embedBatch(ctx context.Context, batch []types.Fragment) ([]types.EmbeddedFragment, int, error) {
	vectors := make([][]float32, len(batch))

	var missIdx []int
	var missTexts []string
	for i, f := range batch {
		if b.cache != nil {
			if v, ok := b.cache.Get(b.cache.Key(f.Text)); ok {
				vectors[i] = v
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, f.Text)
	}

	if len(missTexts) > 0 {
		got, err := retry.Do(ctx, b.retryCfg, func() ([][]float32, error) {
			if err := b.wait(ctx); err != nil {
				return nil, err
			}
			return b.emb.EmbedBatch(ctx, missTexts)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			b.log.Warn("batch embedding exhausted retries, falling back to per-fragment calls",
				zap.Int("batch_size", len(missTexts)), zap.Error(err))
			if ferr := b.embedSingles(ctx, missTexts, missIdx, vectors); ferr != nil {
				return nil, 0, ferr
			}
		} else {
			for j, i := range missIdx {
				vectors[i] = got[j]
			}
		}
	}

	out := make([]types.EmbeddedFragment, 0, len(batch))
	failed := 0
	for i, f := range batch {
		if vectors[i] == nil {
			failed++
			continue
		}
		if b.cache != nil {
			b.cache.Set(b.cache.Key(f.Text), vectors[i])
		}
		out = append(out, types.EmbeddedFragment{
			Fragment: f,
			Vector:   vectors[i],
			Model:    b.emb.Model(),
		})
	}
	return out, failed, nil
}

// embedSingles is the per-fragment fallback: each miss gets its own retried
// call, and a fragment that still fails leaves a nil vector for the caller
// to count as dropped.
func (b *Batcher) embedSingles(ctx context.Context, texts []string, idx []int, vectors [][]float32) error {
	for j, text := range texts {
		v, err := retry.Do(ctx, b.retryCfg, func() ([]float32, error) {
			if err := b.wait(ctx); err != nil {
				return nil, err
			}
			return b.emb.Embed(ctx, text)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Error("fragment embedding failed after retries, dropping",
				zap.Int("tokens", b.tok.Count(text)), zap.Error(err))
			continue
		}
		vectors[idx[j]] = v
	}
	return nil
}

func (b *Batcher) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// Dimension exposes the provider dimensionality for collection setup.
func (b *Batcher) Dimension() int {
	return b.emb.Dimension()
}

// Model exposes the provider model name recorded on uploaded points.
func (b *Batcher) Model() string {
	return b.emb.Model()
}
