package cartstore

import (
	"context"
	"sync"

	"github.com/kimthedrew/legit-collections/models"
)

// MemoryStore is the fallback cart store used when no Redis URL is
// configured, and in tests. Carts do not survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[uint][]models.CartItem
}

func NewMemory() *MemoryStore {
	return &MemoryStore{carts: make(map[uint][]models.CartItem)}
}

func (s *MemoryStore) Get(_ context.Context, userID uint) ([]models.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.carts[userID]
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out, nil
}

func (s *MemoryStore) Replace(_ context.Context, userID uint, items []models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]models.CartItem, len(items))
	copy(stored, items)
	s.carts[userID] = stored
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}
