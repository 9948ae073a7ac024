package types

import "errors"

// ChunkingMethod records which splitter produced a fragment.
type ChunkingMethod string

const (
	// MethodSemantic marks fragments produced by the token-aware semantic splitter.
	MethodSemantic ChunkingMethod = "semantic"
	// MethodFallback marks fragments produced by the character-window fallback splitter.
	MethodFallback ChunkingMethod = "fallback"
)

// TokensPerChar is the heuristic ratio used when no model tokenizer is
// available: roughly 4 characters per token for English prose.
const TokensPerChar = 4

// Fragment is a text unit sized for a single embedding call. It carries
// provenance back to the macro block it was cut from and its exact token
// count, which is always computed before the fragment leaves the chunking
// stage.
type Fragment struct {
	Text          string
	MacroIndex    int // index of the macro block within the document
	FragmentIndex int // position within the macro block
	TokenCount    int
	Method        ChunkingMethod
}

// Validate checks the invariants a fragment must satisfy after chunking.
func (f *Fragment) Validate() error {
	if f.Text == "" {
		return errors.New("fragment text cannot be empty")
	}
	if f.TokenCount <= 0 {
		return errors.New("fragment token count must be computed")
	}
	if f.MacroIndex < 0 || f.FragmentIndex < 0 {
		return errors.New("fragment indices must be non-negative")
	}
	return nil
}

// EmbeddedFragment is a fragment plus its embedding vector. Vector length is
// constant within one run and equals the provider's declared dimensionality.
type EmbeddedFragment struct {
	Fragment
	Vector []float32
	Model  string
}

// EstimateTokens approximates the token count of text using the
// characters-per-token heuristic. The chunker prefers a real model tokenizer;
// this is the degraded path.
func EstimateTokens(text string) int {
	n := len([]rune(text)) / TokensPerChar
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
