package storage

import (
	"context"
	"sync"

	"github.com/CreativeUnicorns/carprefs"
)

// MemoryStorage implements carprefs.Storage with an in-memory map.
// Documents are kept encoded, so callers never share memory with the store.
// This is useful for testing or simple applications where persistence is not required.
type MemoryStorage struct {
	mu     sync.RWMutex
	docs   map[string][]byte // userID -> encoded document
	codec  codec
	closed bool
}

// NewMemoryStorage creates a new instance of MemoryStorage.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	o := buildOptions(opts)
	return &MemoryStorage{
		docs:  make(map[string][]byte),
		codec: codec{encryptor: o.encryptor},
	}
}

// GetAttributes returns the user's document, or carprefs.ErrNotFound.
func (s *MemoryStorage) GetAttributes(_ context.Context, userID string) (carprefs.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return carprefs.Document{}, carprefs.ErrStorageUnavailable
	}

	data, ok := s.docs[userID]
	if !ok {
		return carprefs.Document{}, carprefs.ErrNotFound
	}
	return s.codec.decode(data)
}

// SaveAttributes replaces the user's document.
func (s *MemoryStorage) SaveAttributes(_ context.Context, userID string, doc carprefs.Document) error {
	data, err := s.codec.encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return carprefs.ErrStorageUnavailable
	}
	s.docs[userID] = data
	return nil
}

// Close marks the storage closed; later calls fail with carprefs.ErrStorageUnavailable.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
