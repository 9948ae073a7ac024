package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// plainExts covers text-native formats: markup, data files, and source code.
var plainExts = map[string]bool{
	".txt": true, ".md": true, ".rst": true, ".log": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".xml": true, ".html": true, ".htm": true, ".csv": true,
	".go": true, ".py": true, ".js": true, ".ts": true,
	".java": true, ".c": true, ".cpp": true, ".h": true,
	".rs": true, ".rb": true, ".sh": true, ".sql": true,
}

// Plain reads text-native files as-is, replacing invalid UTF-8 sequences
// with the replacement character.
type Plain struct{}

// NewPlain returns the plain-text extractor.
func NewPlain() *Plain {
	return &Plain{}
}

func (p *Plain) Name() string {
	return "plain"
}

func (p *Plain) CanHandle(path string) bool {
	return extMatches(path, plainExts)
}

func (p *Plain) Extract(_ context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
