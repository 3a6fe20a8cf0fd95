package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DocumentStore reads tracked documents as whole-file UTF-8 text.
type DocumentStore struct {
	paths map[string]string
}

// NewDocumentStore creates a store over the key to path mapping.
func NewDocumentStore(paths map[string]string) *DocumentStore {
	cp := make(map[string]string, len(paths))
	for k, v := range paths {
		cp[k] = v
	}
	return &DocumentStore{paths: cp}
}

// Path returns the configured path for key.
func (s *DocumentStore) Path(key string) (string, bool) {
	p, ok := s.paths[key]
	return p, ok
}

// Read returns the content of the document for key. ok is false when the key
// is not configured, the file does not exist, or it holds only whitespace.
// Only real I/O failures are errors.
func (s *DocumentStore) Read(key string) (content string, ok bool, err error) {
	path, found := s.paths[key]
	if !found || path == "" {
		return "", false, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s document: %w", key, err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", false, nil
	}
	return text, true, nil
}
