package chunker

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/ragify/ragify/pkg/types"
)

// Tokenizer counts model-tokenizer tokens in text. Every fragment's
// token_count comes from the same Tokenizer instance for the whole run.
type Tokenizer interface {
	Count(text string) int
}

// Encoding is the tokenizer encoding matching the embedding models in use.
const Encoding = "cl100k_base"

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Heuristic approximates token counts at 4 characters per token. It is the
// degraded path when the BPE encoding cannot be loaded, and the deterministic
// choice for tests.
type Heuristic struct{}

// Count implements Tokenizer.
func (Heuristic) Count(text string) int {
	return types.EstimateTokens(text)
}

// NewTokenizer returns the cl100k_base tokenizer, degrading to the character
// heuristic when the encoding is unavailable.
func NewTokenizer(log *zap.Logger) Tokenizer {
	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		log.Warn("model tokenizer unavailable, using character heuristic", zap.Error(err))
		return Heuristic{}
	}
	return &tiktokenCounter{enc: enc}
}
