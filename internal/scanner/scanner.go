// Package scanner discovers candidate files for indexing. It applies the
// hidden-path, skip-pattern, and extension filters and returns deterministic,
// path-sorted file records with size and modification time populated.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ragify/ragify/pkg/types"
)

// Options controls which files the scan yields.
type Options struct {
	SkipHidden   bool     // exclude paths with any segment starting with "."
	SkipPatterns []string // glob patterns matched against path base names
	Extensions   []string // allow-list of extensions (with or without dot); empty means all
}

// Scan walks root recursively and returns records for the files passing the
// filters, sorted by absolute path. It never opens file contents; hashes are
// computed later, on demand.
func Scan(root string, opts Options) ([]types.FileRecord, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", abs)
	}

	allowed := normalizeExtensions(opts.Extensions)

	var files []types.FileRecord
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()

		if d.IsDir() {
			if path == abs {
				return nil
			}
			if opts.SkipHidden && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if matchesAny(name, opts.SkipPatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if opts.SkipHidden && strings.HasPrefix(name, ".") {
			return nil
		}
		if matchesAny(name, opts.SkipPatterns) {
			return nil
		}
		if allowed != nil {
			ext := strings.ToLower(filepath.Ext(name))
			if _, ok := allowed[ext]; !ok {
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, types.FileRecord{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", abs, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[e] = struct{}{}
	}
	return m
}
