package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// WatchedEntry is one tracked file: its canonical absolute path and the
// caller-assigned logical key.
type WatchedEntry struct {
	CanonicalPath string
	Key           string
}

// PathIndex maps canonical absolute paths to logical keys. It is built once
// and never rescans the disk.
type PathIndex struct {
	entries map[string]string
	dirs    []string
}

// NewPathIndex resolves every path in keyToPath to its canonical form.
// Returns ErrDuplicatePath if two keys resolve to the same file.
func NewPathIndex(keyToPath map[string]string) (*PathIndex, error) {
	if len(keyToPath) == 0 {
		return nil, ErrNoPathsConfigured
	}

	idx := &PathIndex{entries: make(map[string]string, len(keyToPath))}
	seenDirs := make(map[string]bool)

	for key, path := range keyToPath {
		if key == "" {
			return nil, ErrEmptyKey
		}
		canonical, err := Canonicalize(path)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", path, err)
		}
		if existing, ok := idx.entries[canonical]; ok {
			return nil, fmt.Errorf("%w: %s (keys %q and %q)", ErrDuplicatePath, canonical, existing, key)
		}
		idx.entries[canonical] = key

		dir := filepath.Dir(canonical)
		if !seenDirs[dir] {
			seenDirs[dir] = true
			idx.dirs = append(idx.dirs, dir)
		}
	}

	sort.Strings(idx.dirs)
	return idx, nil
}

// Lookup returns the logical key for path, if path is one of the indexed files.
func (idx *PathIndex) Lookup(path string) (string, bool) {
	canonical, err := Canonicalize(path)
	if err != nil {
		return "", false
	}
	key, ok := idx.entries[canonical]
	return key, ok
}

// Dirs returns the distinct parent directories of the indexed files, sorted.
func (idx *PathIndex) Dirs() []string {
	out := make([]string, len(idx.dirs))
	copy(out, idx.dirs)
	return out
}

// Entries returns the indexed files sorted by canonical path.
func (idx *PathIndex) Entries() []WatchedEntry {
	out := make([]WatchedEntry, 0, len(idx.entries))
	for path, key := range idx.entries {
		out = append(out, WatchedEntry{CanonicalPath: path, Key: key})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CanonicalPath < out[j].CanonicalPath
	})
	return out
}

// Len returns the number of indexed files.
func (idx *PathIndex) Len() int {
	return len(idx.entries)
}

// Canonicalize returns the absolute, cleaned, symlink-resolved form of path.
// A file that does not exist yet keeps its base name under its resolved
// parent directory, so it can be registered before it is first written.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	dir, base := filepath.Split(abs)
	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return filepath.Clean(abs), nil
	}
	return filepath.Join(resolvedDir, base), nil
}
