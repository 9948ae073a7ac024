package embedder

import (
	"fmt"
	"time"

	"github.com/ragify/ragify/internal/config"
)

// New creates the Embedder named by cfg.Provider.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	switch cfg.Provider {
	case ProviderOllama, "":
		// num_ctx follows the per-fragment ceiling so the server never
		// truncates a batch the batcher considered valid.
		return NewOllamaProvider(cfg.URL, cfg.Model, cfg.Dimension, 8192, timeout), nil
	case ProviderOpenAI:
		url := cfg.URL
		if url == DefaultOllamaURL {
			// The config default points at Ollama; an OpenAI provider with
			// no explicit URL means the hosted API.
			url = ""
		}
		return NewOpenAIProvider(url, cfg.APIKey, cfg.Model, cfg.Dimension, timeout)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderEnabled, cfg.Provider)
	}
}
