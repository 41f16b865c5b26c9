package session

import (
	"context"
	"sync"

	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
)

// MemoryStore is the default StateStore: one result per tab in a map.
type MemoryStore struct {
	mu   sync.RWMutex
	tabs map[analysis.TabID]*analysis.Result
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tabs: make(map[analysis.TabID]*analysis.Result)}
}

func (s *MemoryStore) Put(_ context.Context, tab analysis.TabID, r *analysis.Result) error {
	s.mu.Lock()
	s.tabs[tab] = r
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, tab analysis.TabID) (*analysis.Result, bool, error) {
	s.mu.RLock()
	r, ok := s.tabs[tab]
	s.mu.RUnlock()
	return r, ok, nil
}

func (s *MemoryStore) Evict(_ context.Context, tab analysis.TabID) error {
	s.mu.Lock()
	delete(s.tabs, tab)
	s.mu.Unlock()
	return nil
}

// Len is the number of tabs with a stored result.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tabs)
}
