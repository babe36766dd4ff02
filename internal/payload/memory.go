package payload

import (
	"sync"

	"pix-go/internal/index"
	"pix-go/internal/model"
)

// MemoryPayloadStore is an in-memory implementation of index.PayloadStore,
// useful for testing. Safe for concurrent use.
type MemoryPayloadStore struct {
	mu      sync.Mutex
	stored  *model.IndexPayload
	saves   int
	saveErr error
}

var _ index.PayloadStore = (*MemoryPayloadStore)(nil)

// NewMemoryPayloadStore creates an empty in-memory store.
func NewMemoryPayloadStore() *MemoryPayloadStore {
	return &MemoryPayloadStore{}
}

// Save keeps a deep copy of the payload.
func (s *MemoryPayloadStore) Save(p *model.IndexPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := *p
	cp.Entries = append([]model.IndexEntry(nil), p.Entries...)
	s.stored = &cp
	s.saves++
	return nil
}

// Load returns a deep copy of the last saved payload, or (nil, nil).
func (s *MemoryPayloadStore) Load() (*model.IndexPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored == nil {
		return nil, nil
	}
	cp := *s.stored
	cp.Entries = append([]model.IndexEntry(nil), s.stored.Entries...)
	return &cp, nil
}

// Saves returns how many times Save has succeeded.
func (s *MemoryPayloadStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FailSaves makes subsequent Save calls fail with err. Pass nil to clear.
func (s *MemoryPayloadStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}
