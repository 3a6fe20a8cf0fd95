package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Replaceable for testing error paths.
var (
	osCreateTemp = os.CreateTemp
	osRename     = os.Rename
	fileSync     = (*os.File).Sync
)

// atomicWrite writes data to path via a synced temp file in the same
// directory and a rename, so readers never observe a partial context file.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomic write: mkdir: %w", err)
	}

	tmp, err := osCreateTemp(dir, ".ctxsync-tmp-*")
	if err != nil {
		return fmt.Errorf("atomic write: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpName)
		}
	}()

	_, writeErr := tmp.Write(data)
	if writeErr == nil {
		writeErr = fileSync(tmp)
	}
	closeErr := tmp.Close()
	if writeErr != nil {
		return fmt.Errorf("atomic write: write: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("atomic write: close: %w", closeErr)
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("atomic write: chmod: %w", err)
	}
	if err := osRename(tmpName, path); err != nil {
		return fmt.Errorf("atomic write: rename: %w", err)
	}

	success = true
	return nil
}
