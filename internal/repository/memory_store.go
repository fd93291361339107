package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// MemoryStore is an in-process restaurant store with the same
// compare-and-swap contract as RestaurantRepo.  Every value crossing the
// API is a deep copy, so callers never share table slices with the store.
// It backs tests and single-node demo runs.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  uint64
	byID    map[uint64]*model.Restaurant
	byAdmin map[uint64]uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[uint64]*model.Restaurant),
		byAdmin: make(map[uint64]uint64),
	}
}

func (s *MemoryStore) GetByID(_ context.Context, id uint64) (*model.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, ErrRestaurantNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) GetByAdmin(_ context.Context, adminID uint64) (*model.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAdmin[adminID]
	if !ok {
		return nil, ErrRestaurantNotFound
	}
	return s.byID[id].Clone(), nil
}

// List returns all restaurants ordered by name, then id.
func (s *MemoryStore) List(_ context.Context) ([]model.Restaurant, error) {
	s.mu.RLock()
	out := make([]model.Restaurant, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, *r.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, rest *model.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byAdmin[rest.AdminID]; ok {
		return ErrAdminHasRestaurant
	}
	s.nextID++
	now := time.Now().UTC()
	rest.ID = s.nextID
	rest.Version = 1
	rest.CreatedAt = now
	rest.UpdatedAt = now
	s.byID[rest.ID] = rest.Clone()
	s.byAdmin[rest.AdminID] = rest.ID
	return nil
}

func (s *MemoryStore) UpdateIfVersion(_ context.Context, rest *model.Restaurant, expected uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[rest.ID]
	if !ok {
		return ErrRestaurantNotFound
	}
	if cur.Version != expected {
		return ErrVersionConflict
	}
	next := rest.Clone()
	// ownership and creation metadata are not writable through updates
	next.AdminID = cur.AdminID
	next.CreatedAt = cur.CreatedAt
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()
	s.byID[rest.ID] = next
	rest.Version = next.Version
	rest.UpdatedAt = next.UpdatedAt
	return nil
}
