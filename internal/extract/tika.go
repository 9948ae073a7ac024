package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ragify/ragify/internal/retry"
)

// Tika hands any file to an Apache Tika server. Registered last, it is the
// catch-all for formats the local extractors do not cover.
type Tika struct {
	url        string
	httpClient *http.Client
}

// NewTika returns a Tika extractor against url. timeout is in seconds.
func NewTika(url string, timeout int) *Tika {
	if timeout <= 0 {
		timeout = 60
	}
	return &Tika{
		url:        strings.TrimRight(url, "/"),
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

func (t *Tika) Name() string {
	return "tika"
}

// CanHandle accepts everything; the registry only reaches Tika after the
// format-specific extractors declined.
func (t *Tika) CanHandle(string) bool {
	return true
}

func (t *Tika) Extract(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.url+"/tika", f)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tika request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read tika response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &retry.HTTPError{
			Status:     resp.StatusCode,
			RetryAfter: retry.ParseRetryAfter(resp.Header),
			Body:       string(body),
		}
	}
	return string(body), nil
}
