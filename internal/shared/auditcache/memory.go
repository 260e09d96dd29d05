package auditcache

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, serviceID string, inputHash string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[memoryKey(serviceID, inputHash)]
	if !ok {
		return Entry{}, false, nil
	}
	entry.Result = append([]byte(nil), entry.Result...)
	return entry, true, nil
}

func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	if entry.InputHash == "" {
		return ErrInvalidEntry
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Result = append([]byte(nil), entry.Result...)
	s.entries[memoryKey(entry.ServiceID, entry.InputHash)] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, serviceID string, inputHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, memoryKey(serviceID, inputHash))
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func memoryKey(serviceID string, inputHash string) string {
	return serviceID + "\x00" + inputHash
}

var _ Store = (*MemoryStore)(nil)
