package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ragify/ragify/internal/retry"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
	NomicDimension     = 768
)

// OllamaProvider embeds through a local Ollama server: the batch /api/embed
// endpoint and the single-text /api/embeddings endpoint.
type OllamaProvider struct {
	baseURL    string
	model      string
	dimension  int
	numCtx     int
	httpClient *http.Client
}

// NewOllamaProvider creates an Ollama embedder. numCtx is forwarded as the
// model context window so the server does not silently truncate batches.
func NewOllamaProvider(baseURL, model string, dimension, numCtx int, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if dimension <= 0 {
		dimension = NomicDimension
	}
	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimension:  dimension,
		numCtx:     numCtx,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	reqBody := map[string]any{
		"model": o.model,
		"input": texts,
	}
	if o.numCtx > 0 {
		reqBody["options"] = map[string]any{"num_ctx": o.numCtx}
	}

	var apiResp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := o.post(ctx, "/api/embed", reqBody, &apiResp); err != nil {
		return nil, err
	}

	if len(apiResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors",
			ErrVectorMismatch, len(texts), len(apiResp.Embeddings))
	}
	return apiResp.Embeddings, nil
}

func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateTexts([]string{text}); err != nil {
		return nil, err
	}

	reqBody := map[string]any{
		"model":  o.model,
		"prompt": text,
	}

	var apiResp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := o.post(ctx, "/api/embeddings", reqBody, &apiResp); err != nil {
		return nil, err
	}

	if len(apiResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrProviderFailed)
	}
	return apiResp.Embedding, nil
}

// post issues a JSON POST and decodes the response into out. Non-2xx
// responses come back as *retry.HTTPError so the retry layer can classify
// them and honor Retry-After hints.
func (o *OllamaProvider) post(ctx context.Context, path string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &retry.HTTPError{
			Status:     resp.StatusCode,
			RetryAfter: retry.ParseRetryAfter(resp.Header),
			Body:       string(bodyBytes),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (o *OllamaProvider) Dimension() int {
	return o.dimension
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
