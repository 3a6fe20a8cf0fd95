package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "context.json")

	require.NoError(t, atomicWrite(path, []byte("first"), 0o644))
	require.NoError(t, atomicWrite(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestAtomicWriteRenameFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.json")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	orig := osRename
	osRename = func(string, string) error { return errors.New("rename failed") }
	t.Cleanup(func() { osRename = orig })

	err := atomicWrite(path, []byte("replacement"), 0o644)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWriteCreateTempFailure(t *testing.T) {
	orig := osCreateTemp
	osCreateTemp = func(string, string) (*os.File, error) { return nil, errors.New("no space") }
	t.Cleanup(func() { osCreateTemp = orig })

	err := atomicWrite(filepath.Join(t.TempDir(), "context.json"), []byte("x"), 0o644)
	assert.ErrorContains(t, err, "create temp")
}

func TestAtomicWriteSyncsBeforeRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "context.json")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	var synced int
	orig := fileSync
	fileSync = func(f *os.File) error {
		synced++
		return errors.New("fsync failed")
	}
	t.Cleanup(func() { fileSync = orig })

	err := atomicWrite(path, []byte("replacement"), 0o644)
	assert.ErrorContains(t, err, "fsync failed")
	assert.Equal(t, 1, synced)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed")
}
