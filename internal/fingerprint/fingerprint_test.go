package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKnownDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	got, err := File(path)
	require.NoError(t, err)
	// sha256("hello world")
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)
}

func TestFileIdenticalBytesDifferentPaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(b, 0o755))
	b = filepath.Join(b, "b.bin")

	content := make([]byte, 3*blockSize+17) // spans several read blocks
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(a, content, 0o644))
	require.NoError(t, os.WriteFile(b, content, 0o644))

	ha, err := File(a)
	require.NoError(t, err)
	hb, err := File(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "fingerprint must depend only on bytes")
}

func TestFileDifferentBytesDiffer(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("two"), 0o644))

	ha, _ := File(a)
	hb, _ := File(b)
	assert.NotEqual(t, ha, hb)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestCacheComputesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("cached"), 0o644))

	c := NewCache()
	first, err := c.File(path)
	require.NoError(t, err)

	// Mutating the file after caching must not change the cached digest.
	require.NoError(t, os.WriteFile(path, []byte("mutated"), 0o644))
	second, err := c.File(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestTextDeterministic(t *testing.T) {
	assert.Equal(t, Text("fragment"), Text("fragment"))
	assert.NotEqual(t, Text("a"), Text("b"))
	assert.Len(t, Text(""), 64)
}
