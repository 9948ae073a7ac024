// Package embedder generates vector embeddings for text fragments. It wraps
// the HTTP providers (Ollama, OpenAI-compatible) behind one interface, caches
// vectors by content hash, and packs fragments into provider calls under a
// count limit and a token budget.
package embedder

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrVectorMismatch    = errors.New("provider returned wrong vector count")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedder generates embeddings. Batch calls must return vectors in input
// order; both providers verify the count before handing vectors back.
type Embedder interface {
	// EmbedBatch embeds texts in one provider call, one vector per text,
	// in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Embed embeds a single text. Used for the per-fragment fallback after
	// a batch call exhausts its retries.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the vector dimensionality this provider produces.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// validateTexts rejects empty batches and empty entries before they reach
// a provider.
func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, t := range texts {
		if t == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
