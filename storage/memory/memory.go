// Package memory is an in-process storage backend. Tests use it to stage
// archives and inspect written output without touching the filesystem.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderMemory, func(context.Context, storage.Config, *logger.Logger) (storage.Storage, error) {
		return New(), nil
	})
}

// memFile holds a stored object's data and metadata.
type memFile struct {
	data    []byte
	modTime time.Time
}

// Storage is a storage.Storage backed by a map.
type Storage struct {
	mu    sync.RWMutex
	files map[string]*memFile
}

var _ storage.Storage = (*Storage)(nil)

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{files: make(map[string]*memFile)}
}

// Put stores data under path.
func (s *Storage) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &memFile{data: append([]byte(nil), data...), modTime: time.Now()}
}

// Get returns a copy of the data stored under path.
func (s *Storage) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.data...), true
}

// Paths returns every stored path in sorted order.
func (s *Storage) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Reset removes all objects.
func (s *Storage) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]*memFile)
}

func (s *Storage) Upload(_ context.Context, path string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return errors.SinkFailed(path, fmt.Errorf("read upload data: %w", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &memFile{data: data, modTime: time.Now()}
	return nil
}

func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	if !ok {
		return nil, errors.NotFound("object", path)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (s *Storage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[path]
	return ok, nil
}

func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []storage.FileInfo
	for path, f := range s.files {
		if strings.HasPrefix(path, prefix) {
			result = append(result, storage.FileInfo{
				Path:         path,
				Size:         int64(len(f.data)),
				LastModified: f.modTime,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}
