// Package memory holds archive files in-memory for development and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// ObjectStore is an in-memory bucket.
type ObjectStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	openErr map[string]error
}

// NewObjectStore creates an empty in-memory bucket.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		data:    make(map[string][]byte),
		openErr: make(map[string]error),
	}
}

// Put stores a copy of data under key.
func (s *ObjectStore) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
}

// FailOpen makes every later Open of key return err.
func (s *ObjectStore) FailOpen(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr[key] = err
}

// List returns every stored object sorted by key.
func (s *ObjectStore) List(_ context.Context) ([]ingest.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ingest.WorkItem, 0, len(s.data))
	for key, data := range s.data {
		items = append(items, ingest.WorkItem{Key: key, Size: int64(len(data))})
	}
	slices.SortFunc(items, func(a, b ingest.WorkItem) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return items, nil
}

// Open streams the object stored under key.
func (s *ObjectStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.openErr[key]; ok {
		return nil, err
	}
	data, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

var _ ingest.ObjectStore = (*ObjectStore)(nil)
