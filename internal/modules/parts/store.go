package parts

import (
	"context"
	"errors"
	"sync"

	id "repairradar/pkg/domain"
)

// ErrNotFound is returned when a part does not exist for the tenant.
var ErrNotFound = errors.New("part not found")

// InMemoryStore keeps parts partitioned by tenant.
type InMemoryStore struct {
	mu    sync.RWMutex
	parts map[id.TenantID]map[id.PartID]*Part
}

func NewStore() *InMemoryStore {
	return &InMemoryStore{parts: make(map[id.TenantID]map[id.PartID]*Part)}
}

func (s *InMemoryStore) Save(_ context.Context, part *Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.parts[part.TenantID]
	if !ok {
		byID = make(map[id.PartID]*Part)
		s.parts[part.TenantID] = byID
	}
	copyPart := *part
	byID[part.ID] = &copyPart
	return nil
}

// Mutate applies fn to the stored part under the store's write lock, so
// concurrent read-modify-write cycles cannot interleave and lose updates. If
// fn returns an error nothing is written. The returned part is a copy.
func (s *InMemoryStore) Mutate(_ context.Context, tenantID id.TenantID, partID id.PartID, fn func(part *Part) error) (*Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	part, ok := s.parts[tenantID][partID]
	if !ok {
		return nil, ErrNotFound
	}
	updated := *part
	if err := fn(&updated); err != nil {
		return nil, err
	}
	stored := updated
	s.parts[tenantID][partID] = &stored
	return &updated, nil
}

func (s *InMemoryStore) Stats(_ context.Context, tenantID id.TenantID, lowStockBelow int) (total, lowStock int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, part := range s.parts[tenantID] {
		total++
		if part.Quantity < lowStockBelow {
			lowStock++
		}
	}
	return total, lowStock, nil
}
