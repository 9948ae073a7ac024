// Package chunker implements two-level semantic chunking: a macro pass that
// cuts normalized text into topic-coherent blocks, and a fine pass that cuts
// each block into embedding-sized fragments with provenance and exact token
// counts. A character-window fallback splitter covers splitter faults and
// oversized fragments.
package chunker

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ragify/ragify/pkg/types"
)

// Config holds chunking parameters. All sizes are in tokens.
type Config struct {
	ChunkSize int // fine-pass target; the macro pass targets 2x this
	Overlap   int
	MaxTokens int // hard per-fragment ceiling (embedding model context)
	MinTokens int // fragments below this are discarded; 0 keeps all

	// MacroOnError selects the macro-pass failure policy: "whole" degrades
	// to a single whole-input block, "fallback" hands the whole document to
	// FallbackSplit.
	MacroOnError string
}

// Chunker performs the two-level chunking pass.
type Chunker struct {
	cfg   Config
	tok   Tokenizer
	macro Splitter
	fine  Splitter
	log   *zap.Logger
}

// New creates a Chunker using the token-aware splitter for both passes.
func New(cfg Config, tok Tokenizer, log *zap.Logger) *Chunker {
	s := NewTokenSplitter(tok)
	return NewWithSplitters(cfg, tok, s, s, log)
}

// NewWithSplitters creates a Chunker with explicit splitters. Tests use it
// to exercise the fault paths.
func NewWithSplitters(cfg Config, tok Tokenizer, macro, fine Splitter, log *zap.Logger) *Chunker {
	return &Chunker{cfg: cfg, tok: tok, macro: macro, fine: fine, log: log}
}

// Chunk runs the macro split, the fine split, and the filter stage. Every
// returned fragment has its token count computed and satisfies
// MinTokens <= TokenCount <= MaxTokens.
func (c *Chunker) Chunk(text string) []types.Fragment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	blocks, err := c.macro.Split(text, 2*c.cfg.ChunkSize, c.cfg.Overlap)
	if err != nil {
		return c.macroFailure(text, err)
	}

	return c.filter(c.fineFragments(blocks))
}

// macroFailure applies the configured macro-pass failure policy.
func (c *Chunker) macroFailure(text string, err error) []types.Fragment {
	if c.cfg.MacroOnError == "fallback" {
		c.log.Warn("macro splitter failed, using character-window fallback", zap.Error(err))
		windows := FallbackSplit(text, c.cfg.ChunkSize, c.cfg.Overlap)
		frags := make([]types.Fragment, 0, len(windows))
		for i, w := range windows {
			frags = append(frags, types.Fragment{
				Text:          w,
				MacroIndex:    0,
				FragmentIndex: i,
				TokenCount:    c.tok.Count(w),
				Method:        types.MethodFallback,
			})
		}
		return c.filter(frags)
	}

	c.log.Warn("macro splitter failed, degrading to single block", zap.Error(err))
	return c.filter(c.fineFragments([]string{text}))
}

// fineFragments splits each macro block into fragments. A fine-pass fault on
// one block degrades that block to a single fallback-tagged fragment without
// affecting its siblings.
func (c *Chunker) fineFragments(blocks []string) []types.Fragment {
	var frags []types.Fragment
	for bi, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}
		parts, err := c.fine.Split(block, c.cfg.ChunkSize, c.cfg.Overlap)
		if err != nil {
			c.log.Warn("fine splitter failed for block, keeping block whole",
				zap.Int("block", bi), zap.Error(err))
			frags = append(frags, types.Fragment{
				Text:          block,
				MacroIndex:    bi,
				FragmentIndex: 0,
				TokenCount:    c.tok.Count(block),
				Method:        types.MethodFallback,
			})
			continue
		}
		for fi, p := range parts {
			frags = append(frags, types.Fragment{
				Text:          p,
				MacroIndex:    bi,
				FragmentIndex: fi,
				TokenCount:    c.tok.Count(p),
				Method:        types.MethodSemantic,
			})
		}
	}
	return frags
}

// filter drops fragments under MinTokens and re-splits fragments over
// MaxTokens through the fallback splitter at half the ceiling. Re-chunking
// is bounded to one level: pieces that still exceed the ceiling are dropped
// and logged as unrecoverable.
func (c *Chunker) filter(frags []types.Fragment) []types.Fragment {
	// Re-chunked pieces continue each block's numbering past its highest
	// original index, keeping (MacroIndex, FragmentIndex) unique.
	next := make(map[int]int)
	for _, f := range frags {
		if f.FragmentIndex >= next[f.MacroIndex] {
			next[f.MacroIndex] = f.FragmentIndex + 1
		}
	}

	valid := make([]types.Fragment, 0, len(frags))
	for _, f := range frags {
		if f.TokenCount < c.cfg.MinTokens {
			c.log.Debug("discarding short fragment",
				zap.Int("tokens", f.TokenCount), zap.Int("min", c.cfg.MinTokens))
			continue
		}
		if f.TokenCount <= c.cfg.MaxTokens {
			valid = append(valid, f)
			continue
		}

		c.log.Warn("fragment over token ceiling, re-chunking once",
			zap.Int("tokens", f.TokenCount), zap.Int("max", c.cfg.MaxTokens))
		for _, sub := range FallbackSplit(f.Text, c.cfg.MaxTokens/2, c.cfg.Overlap) {
			tc := c.tok.Count(sub)
			if tc > c.cfg.MaxTokens {
				c.log.Error("re-chunked fragment still over ceiling, dropping",
					zap.Int("tokens", tc))
				continue
			}
			if tc < c.cfg.MinTokens {
				continue
			}
			valid = append(valid, types.Fragment{
				Text:          sub,
				MacroIndex:    f.MacroIndex,
				FragmentIndex: next[f.MacroIndex],
				TokenCount:    tc,
				Method:        types.MethodFallback,
			})
			next[f.MacroIndex]++
		}
	}
	return valid
}
