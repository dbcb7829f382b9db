package storage

import (
	"context"
	"sync"

	"github.com/verisafe/docvault/internal/common"
)

// MemoryStore is an in-process ObjectStore used by tests and local
// development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, documentID string, ciphertext []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := "mem/" + documentID
	cp := make([]byte, len(ciphertext))
	copy(cp, ciphertext)
	s.blobs[ref] = cp
	return ref, nil
}

func (s *MemoryStore) Get(_ context.Context, storageRef string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[storageRef]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, storageRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[storageRef]; !ok {
		return common.ErrNotFound
	}
	delete(s.blobs, storageRef)
	return nil
}

// Len reports how many blobs are currently held. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
