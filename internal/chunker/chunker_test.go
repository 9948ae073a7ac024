package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ragify/ragify/pkg/types"
)

// faultSplitter always fails.
type faultSplitter struct{ err error }

func (f faultSplitter) Split(string, int, int) ([]string, error) { return nil, f.err }

// stubSplitter returns fixed parts regardless of input.
type stubSplitter struct{ parts []string }

func (s stubSplitter) Split(string, int, int) ([]string, error) { return s.parts, nil }

func testConfig() Config {
	return Config{ChunkSize: 40, Overlap: 0, MaxTokens: 100, MinTokens: 0, MacroOnError: "whole"}
}

func TestChunkEmpty(t *testing.T) {
	c := New(testConfig(), Heuristic{}, zap.NewNop())
	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk("  \n\n  "))
}

func TestChunkSmallText(t *testing.T) {
	c := New(testConfig(), Heuristic{}, zap.NewNop())

	frags := c.Chunk("a short document that fits in one fragment")
	require.Len(t, frags, 1)
	f := frags[0]
	assert.Equal(t, types.MethodSemantic, f.Method)
	assert.Equal(t, 0, f.MacroIndex)
	assert.Equal(t, 0, f.FragmentIndex)
	assert.Positive(t, f.TokenCount)
	require.NoError(t, f.Validate())
}

func TestChunkTwoLevelProvenance(t *testing.T) {
	cfg := testConfig()
	c := New(cfg, Heuristic{}, zap.NewNop())

	frags := c.Chunk(joinParas(12, 80)) // ~245 tokens across 12 paragraphs
	require.GreaterOrEqual(t, len(frags), 4)

	macros := map[int]bool{}
	lastMacro, lastFrag := -1, -1
	for _, f := range frags {
		require.NoError(t, f.Validate())
		assert.Equal(t, types.MethodSemantic, f.Method)
		assert.LessOrEqual(t, f.TokenCount, cfg.MaxTokens)
		macros[f.MacroIndex] = true

		if f.MacroIndex != lastMacro {
			assert.Equal(t, 0, f.FragmentIndex, "fragment index restarts per macro block")
			lastMacro, lastFrag = f.MacroIndex, 0
		} else {
			assert.Equal(t, lastFrag+1, f.FragmentIndex)
			lastFrag = f.FragmentIndex
		}
	}
	assert.Greater(t, len(macros), 1, "expected multiple macro blocks")
}

func TestChunkMacroFailureWholePolicy(t *testing.T) {
	cfg := testConfig()
	tok := Heuristic{}
	c := NewWithSplitters(cfg, tok,
		faultSplitter{err: errors.New("boom")}, NewTokenSplitter(tok), zap.NewNop())

	frags := c.Chunk(joinParas(6, 80))
	require.NotEmpty(t, frags)
	for _, f := range frags {
		assert.Equal(t, 0, f.MacroIndex, "whole policy yields a single macro block")
		assert.Equal(t, types.MethodSemantic, f.Method)
	}
}

func TestChunkMacroFailureFallbackPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.MacroOnError = "fallback"
	tok := Heuristic{}
	c := NewWithSplitters(cfg, tok,
		faultSplitter{err: errors.New("boom")}, NewTokenSplitter(tok), zap.NewNop())

	frags := c.Chunk(strings.Repeat("fallback window text ", 40))
	require.NotEmpty(t, frags)
	for i, f := range frags {
		assert.Equal(t, types.MethodFallback, f.Method)
		assert.Equal(t, 0, f.MacroIndex)
		assert.Equal(t, i, f.FragmentIndex)
		assert.LessOrEqual(t, f.TokenCount, cfg.ChunkSize)
	}
}

func TestChunkFineFailureKeepsBlockWhole(t *testing.T) {
	cfg := testConfig()
	tok := Heuristic{}
	blocks := []string{joinParas(2, 60), joinParas(3, 60)}
	c := NewWithSplitters(cfg, tok,
		stubSplitter{parts: blocks}, faultSplitter{err: errors.New("boom")}, zap.NewNop())

	frags := c.Chunk("input is ignored by the stubs")
	require.Len(t, frags, 2)
	for i, f := range frags {
		assert.Equal(t, blocks[i], f.Text)
		assert.Equal(t, i, f.MacroIndex)
		assert.Equal(t, 0, f.FragmentIndex)
		assert.Equal(t, types.MethodFallback, f.Method)
	}
}

func TestChunkFiltersShortFragments(t *testing.T) {
	cfg := testConfig()
	cfg.MinTokens = 10
	tok := Heuristic{}
	keep := strings.Repeat("long enough ", 8) // 24 tokens
	c := NewWithSplitters(cfg, tok,
		stubSplitter{parts: []string{"block"}},
		stubSplitter{parts: []string{keep, "tiny"}}, zap.NewNop())

	frags := c.Chunk("ignored")
	require.Len(t, frags, 1)
	assert.Equal(t, keep, frags[0].Text)
	assert.GreaterOrEqual(t, frags[0].TokenCount, cfg.MinTokens)
}

func TestChunkRechunksOversizedOnce(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTokens = 50
	tok := Heuristic{}
	giant := strings.Repeat("abcd ", 200) // ~250 tokens, over the ceiling
	c := NewWithSplitters(cfg, tok,
		stubSplitter{parts: []string{"block"}},
		stubSplitter{parts: []string{giant}}, zap.NewNop())

	frags := c.Chunk("ignored")
	require.NotEmpty(t, frags)
	for i, f := range frags {
		assert.Equal(t, types.MethodFallback, f.Method)
		assert.LessOrEqual(t, f.TokenCount, cfg.MaxTokens)
		assert.Equal(t, i+1, f.FragmentIndex, "re-chunked pieces continue past the parent's index")
	}
}

func TestChunkRechunkKeepsIndicesUnique(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTokens = 50
	tok := Heuristic{}
	keep := strings.Repeat("word ", 24)   // 30 tokens, under the ceiling
	giant := strings.Repeat("abcd ", 120) // 150 tokens, over it
	c := NewWithSplitters(cfg, tok,
		stubSplitter{parts: []string{"block"}},
		stubSplitter{parts: []string{keep, giant}}, zap.NewNop())

	frags := c.Chunk("ignored")
	require.Greater(t, len(frags), 2)

	seen := map[[2]int]bool{}
	for _, f := range frags {
		key := [2]int{f.MacroIndex, f.FragmentIndex}
		assert.False(t, seen[key], "duplicate provenance %v", key)
		seen[key] = true
	}

	assert.Equal(t, keep, frags[0].Text)
	assert.Equal(t, 0, frags[0].FragmentIndex)
	for _, f := range frags[1:] {
		assert.Equal(t, types.MethodFallback, f.Method)
		assert.GreaterOrEqual(t, f.FragmentIndex, 2,
			"re-chunked pieces numbered after the block's surviving siblings")
	}
}

func TestNewTokenizerNeverNil(t *testing.T) {
	tok := NewTokenizer(zap.NewNop())
	require.NotNil(t, tok)
	assert.Positive(t, tok.Count("some text to count"))
	assert.Equal(t, 0, Heuristic{}.Count(""))
}
