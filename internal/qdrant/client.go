// Package qdrant is a thin REST client for the Qdrant vector store, covering
// the handful of endpoints the pipeline needs: collection lifecycle, upsert,
// count-by-payload, search, and scroll.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ragify/ragify/internal/config"
	"github.com/ragify/ragify/internal/retry"
	"github.com/ragify/ragify/pkg/types"
)

// ErrCollectionNotFound marks a 404 on a collection-scoped call. The dedup
// stage treats it as "nothing indexed yet", not a failure.
var ErrCollectionNotFound = errors.New("collection not found")

// Client talks to one Qdrant server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client from configuration.
func New(cfg config.QdrantConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}, nil
}

// Ping verifies the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/collections", nil, nil)
}

// ListCollections returns the names of all collections on the server.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, col := range resp.Result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

// EnsureCollection creates collection with the given dimension if it does not
// exist. An existing collection with a different dimension is an error rather
// than a silent recreate; reindexing into a mismatched collection would
// corrupt it. A keyword payload index on the file hash field is created
// best-effort to keep dedup counts fast.
func (c *Client) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension: %d", dimension)
	}

	current, err := c.collectionDimension(ctx, collection)
	switch {
	case errors.Is(err, ErrCollectionNotFound):
		if err := c.createCollection(ctx, collection, dimension); err != nil {
			return err
		}
	case err != nil:
		return err
	case current > 0 && current != dimension:
		return fmt.Errorf("collection %q has dimension %d, embedding model produces %d",
			collection, current, dimension)
	}

	c.createHashIndex(ctx, collection)
	return nil
}

// Upsert writes points with wait=true so a success means the points are
// persisted, not just queued.
func (c *Client) Upsert(ctx context.Context, collection string, points []types.Point) error {
	if len(points) == 0 {
		return nil
	}
	reqBody := map[string]any{"points": points}
	return c.doRequest(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", collection), reqBody, nil)
}

// CountByFileHash returns how many points in collection carry the given file
// hash in their payload. Exact counting, no estimate.
func (c *Client) CountByFileHash(ctx context.Context, collection, hash string) (int, error) {
	reqBody := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": types.PayloadFileHash, "match": map[string]any{"value": hash}},
			},
		},
		"exact": true,
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := c.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/count", collection), reqBody, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// ScoredPoint is one search hit.
type ScoredPoint struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Search runs a nearest-neighbor query and returns hits with payloads.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 5
	}
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var resp struct {
		Result []ScoredPoint `json:"result"`
	}
	err := c.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", collection), reqBody, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// ScrollPoint is one stored point returned without scoring.
type ScrollPoint struct {
	ID      string         `json:"id"`
	Payload map[string]any `json:"payload"`
}

// Scroll pages through stored points. offset is the next-page token from the
// previous call, nil for the first page; the returned offset is nil on the
// last page.
func (c *Client) Scroll(ctx context.Context, collection string, limit int, offset any) ([]ScrollPoint, any, error) {
	if limit <= 0 {
		limit = 100
	}
	reqBody := map[string]any{
		"limit":        limit,
		"with_payload": true,
	}
	if offset != nil {
		reqBody["offset"] = offset
	}

	var resp struct {
		Result struct {
			Points         []ScrollPoint `json:"points"`
			NextPageOffset any           `json:"next_page_offset"`
		} `json:"result"`
	}
	err := c.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/scroll", collection), reqBody, &resp)
	if err != nil {
		return nil, nil, err
	}
	return resp.Result.Points, resp.Result.NextPageOffset, nil
}

// DeleteCollection drops a collection and everything in it.
func (c *Client) DeleteCollection(ctx context.Context, collection string) error {
	return c.doRequest(ctx, http.MethodDelete, "/collections/"+collection, nil, nil)
}

func (c *Client) collectionDimension(ctx context.Context, collection string) (int, error) {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/collections/"+collection, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Config.Params.Vectors.Size, nil
}

func (c *Client) createCollection(ctx context.Context, collection string, dimension int) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return c.doRequest(ctx, http.MethodPut, "/collections/"+collection, reqBody, nil)
}

// createHashIndex adds the keyword index used by CountByFileHash. Failure is
// ignored: counts still work without the index, only slower.
func (c *Client) createHashIndex(ctx context.Context, collection string) {
	reqBody := map[string]any{
		"field_name":   types.PayloadFileHash,
		"field_schema": "keyword",
	}
	_ = c.doRequest(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/index", collection), reqBody, nil)
}

// doRequest issues one JSON exchange. Non-2xx responses map to
// *retry.HTTPError, except collection 404s which surface as
// ErrCollectionNotFound.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read qdrant response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/collections/") {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, path)
	}
	if resp.StatusCode >= 300 {
		return &retry.HTTPError{
			Status:     resp.StatusCode,
			RetryAfter: retry.ParseRetryAfter(resp.Header),
			Body:       string(data),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse qdrant response: %w", err)
	}
	return nil
}
