package storage

import (
	"context"
	"sync"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

// MemoryStore implements repository.BlobStore in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
}

var _ repository.BlobStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.CacheEntry)}
}

// Get returns a copy of the entry stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (*model.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, repository.ErrBlobNotFound
	}
	return &entry, nil
}

// Stat returns the metadata of the entry stored under key.
func (s *MemoryStore) Stat(_ context.Context, key string) (model.CacheEntryInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return model.CacheEntryInfo{}, repository.ErrBlobNotFound
	}
	return entry.Info(), nil
}

// Put stores a copy of entry.
func (s *MemoryStore) Put(_ context.Context, entry *model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Key] = *entry
	return nil
}

// Delete removes the entry stored under key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// List returns entry metadata in no particular order.
func (s *MemoryStore) List(_ context.Context) ([]model.CacheEntryInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]model.CacheEntryInfo, 0, len(s.entries))
	for _, entry := range s.entries {
		infos = append(infos, entry.Info())
	}
	return infos, nil
}
