// Package extract turns document files into plain text. Format-specific
// extractors are tried in registration order; an optional Tika server acts
// as the catch-all for formats nothing local understands.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ragify/ragify/internal/config"
)

// ErrUnsupported marks a file no registered extractor can handle.
var ErrUnsupported = errors.New("unsupported file format")

// Extractor extracts plain text from one family of document formats.
type Extractor interface {
	// Name identifies the extractor in logs and reports.
	Name() string

	// CanHandle reports whether this extractor takes the file at path.
	CanHandle(path string) bool

	// Extract returns the file's text content. Empty output with a nil
	// error is valid; the pipeline's quality gate decides what to keep.
	Extract(ctx context.Context, path string) (string, error)
}

// Registry holds extractors in priority order.
type Registry struct {
	extractors []Extractor
	log        *zap.Logger
}

// NewRegistry builds the default extractor chain: PDF, Office formats,
// spreadsheets, plain text, and, when a Tika server is configured, the Tika
// catch-all last.
func NewRegistry(cfg config.ExtractionConfig, log *zap.Logger) *Registry {
	extractors := []Extractor{
		NewPDF(),
		NewDocument(),
		NewSpreadsheet(),
		NewPlain(),
	}
	if cfg.TikaURL != "" {
		extractors = append(extractors, NewTika(cfg.TikaURL, cfg.Timeout))
	}
	return &Registry{extractors: extractors, log: log}
}

// NewRegistryWith builds a Registry from explicit extractors, in order.
func NewRegistryWith(log *zap.Logger, extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors, log: log}
}

// Extract runs the first extractor that can handle path and returns the text
// plus the extractor name.
func (r *Registry) Extract(ctx context.Context, path string) (string, string, error) {
	for _, e := range r.extractors {
		if !e.CanHandle(path) {
			continue
		}
		text, err := e.Extract(ctx, path)
		if err != nil {
			return "", e.Name(), fmt.Errorf("%s: %w", e.Name(), err)
		}
		r.log.Debug("extracted text",
			zap.String("path", path), zap.String("extractor", e.Name()),
			zap.Int("chars", len(text)))
		return text, e.Name(), nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func extMatches(path string, exts map[string]bool) bool {
	return exts[strings.ToLower(filepath.Ext(path))]
}
