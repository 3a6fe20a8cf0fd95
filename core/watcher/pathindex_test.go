package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewPathIndex(t *testing.T) {
	dir := t.TempDir()
	arch := filepath.Join(dir, "ARCHITECTURE.md")
	tasks := filepath.Join(dir, "docs", "TASKS.md")
	writeFile(t, arch, "# arch")
	writeFile(t, tasks, "- [ ] one")

	idx, err := NewPathIndex(map[string]string{"architecture": arch, "tasks": tasks})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Len(t, idx.Dirs(), 2)

	key, ok := idx.Lookup(arch)
	assert.True(t, ok)
	assert.Equal(t, "architecture", key)

	key, ok = idx.Lookup(filepath.Join(dir, "docs", "..", "docs", "TASKS.md"))
	assert.True(t, ok)
	assert.Equal(t, "tasks", key)

	_, ok = idx.Lookup(filepath.Join(dir, "README.md"))
	assert.False(t, ok)
}

func TestNewPathIndexMissingFile(t *testing.T) {
	dir := t.TempDir()
	progress := filepath.Join(dir, "PROGRESS.md")

	idx, err := NewPathIndex(map[string]string{"progress": progress})
	require.NoError(t, err)

	writeFile(t, progress, "started")
	key, ok := idx.Lookup(progress)
	assert.True(t, ok)
	assert.Equal(t, "progress", key)
}

func TestNewPathIndexErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TASKS.md")
	writeFile(t, path, "x")

	t.Run("empty", func(t *testing.T) {
		_, err := NewPathIndex(nil)
		assert.ErrorIs(t, err, ErrNoPathsConfigured)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := NewPathIndex(map[string]string{"": path})
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := NewPathIndex(map[string]string{
			"tasks": path,
			"todo":  filepath.Join(dir, ".", "TASKS.md"),
		})
		assert.ErrorIs(t, err, ErrDuplicatePath)
	})

	t.Run("duplicate through symlink", func(t *testing.T) {
		link := filepath.Join(dir, "link.md")
		if err := os.Symlink(path, link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		_, err := NewPathIndex(map[string]string{"tasks": path, "link": link})
		assert.ErrorIs(t, err, ErrDuplicatePath)
	})
}

func TestPathIndexEntriesSorted(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewPathIndex(map[string]string{
		"tasks":        filepath.Join(dir, "c.md"),
		"architecture": filepath.Join(dir, "a.md"),
		"progress":     filepath.Join(dir, "b.md"),
	})
	require.NoError(t, err)

	entries := idx.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "architecture", entries[0].Key)
	assert.Equal(t, "progress", entries[1].Key)
	assert.Equal(t, "tasks", entries[2].Key)
	assert.Equal(t, []string{filepath.Dir(entries[0].CanonicalPath)}, idx.Dirs())
}

func TestCanonicalize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.md")
	writeFile(t, path, "x")

	a, err := Canonicalize(path)
	require.NoError(t, err)
	b, err := Canonicalize(filepath.Join(dir, "sub", "..", "file.md"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, filepath.IsAbs(a))
}
