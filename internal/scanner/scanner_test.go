package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragify/ragify/pkg/types"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
}

func relPaths(t *testing.T, root string, recs []types.FileRecord) []string {
	t.Helper()
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		rel, err := filepath.Rel(root, r.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestScanFindsAllFilesSorted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "zeta.txt")
	writeFile(t, root, "alpha.md")
	writeFile(t, root, "sub/beta.txt")

	files, err := Scan(root, Options{})
	require.NoError(t, err)

	got := relPaths(t, root, files)
	assert.Equal(t, []string{"alpha.md", "sub/beta.txt", "zeta.txt"}, got)
	assert.True(t, sort.SliceIsSorted(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	}))
}

func TestScanPopulatesRecordMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt")

	files, err := Scan(root, Options{})
	require.NoError(t, err)
	require.Len(t, files, 1)

	rec := files[0]
	require.NoError(t, rec.Validate())
	assert.Equal(t, int64(len("content")), rec.Size)
	assert.WithinDuration(t, time.Now(), rec.ModTime, time.Minute)
	assert.Empty(t, rec.Hash, "hash is computed lazily, not during the scan")
}

func TestScanSkipsHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "visible.txt")
	writeFile(t, root, ".hidden.txt")
	writeFile(t, root, ".git/config")
	writeFile(t, root, "docs/.cache/blob")

	files, err := Scan(root, Options{SkipHidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.txt"}, relPaths(t, root, files))
}

func TestScanKeepsHiddenWhenDisabled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".hidden.txt")

	files, err := Scan(root, Options{SkipHidden: false})
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestScanSkipPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt")
	writeFile(t, root, "drop.pyc")
	writeFile(t, root, "node_modules/pkg/index.js")
	writeFile(t, root, "app.log")

	files, err := Scan(root, Options{SkipPatterns: []string{"*.pyc", "node_modules", "*.log"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, relPaths(t, root, files))
}

func TestScanExtensionAllowList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.md")
	writeFile(t, root, "notes.TXT")
	writeFile(t, root, "image.png")

	files, err := Scan(root, Options{Extensions: []string{".md", "txt"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.md", "notes.TXT"}, relPaths(t, root, files))
}

func TestScanDeterministicAcrossRuns(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"c.txt", "a.txt", "b.txt", "d/e.txt"} {
		writeFile(t, root, name)
	}

	first, err := Scan(root, Options{})
	require.NoError(t, err)
	second, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScanRejectsMissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"), Options{})
	require.Error(t, err)
}

func TestScanRejectsFileRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f.txt")
	_, err := Scan(filepath.Join(root, "f.txt"), Options{})
	require.Error(t, err)
}
