// Package source provides content data sources for patch application. A
// source serves file bytes addressed by after-side relative path.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"fsnap/internal/snap"
)

// FilesystemSource serves content from a directory whose layout matches the
// after-side snapshot's paths.
type FilesystemSource struct {
	root string
}

// NewFilesystemSource creates a source rooted at the given directory.
func NewFilesystemSource(root string) (*FilesystemSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat data source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data source is not a directory: %s", root)
	}
	return &FilesystemSource{root: root}, nil
}

// Open opens the file at relPath for reading. A missing path violates the
// data-source contract and is reported as such.
func (s *FilesystemSource) Open(relPath string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(relPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("data source has no content for %s", relPath)
		}
		return nil, fmt.Errorf("opening source file: %w", err)
	}
	return f, nil
}

// MemorySource serves content from an in-memory map. Useful in tests.
// Safe for concurrent use.
type MemorySource struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{files: make(map[string][]byte)}
}

// Put stores content at relPath, replacing any previous content.
func (s *MemorySource) Put(relPath string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[relPath] = content
}

// Open returns a reader over the content stored at relPath.
func (s *MemorySource) Open(relPath string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[relPath]
	if !ok {
		return nil, fmt.Errorf("data source has no content for %s", relPath)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

var _ snap.Source = (*FilesystemSource)(nil)
var _ snap.Source = (*MemorySource)(nil)
