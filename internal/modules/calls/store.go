package calls

import (
	"context"
	"errors"
	"sync"

	id "repairradar/pkg/domain"
)

// ErrNotFound is returned when a call does not exist for the tenant.
var ErrNotFound = errors.New("call not found")

// InMemoryStore keeps calls partitioned by tenant.
type InMemoryStore struct {
	mu    sync.RWMutex
	calls map[id.TenantID]map[id.CallID]*Call
}

func NewStore() *InMemoryStore {
	return &InMemoryStore{calls: make(map[id.TenantID]map[id.CallID]*Call)}
}

func (s *InMemoryStore) Save(_ context.Context, call *Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.calls[call.TenantID]
	if !ok {
		byID = make(map[id.CallID]*Call)
		s.calls[call.TenantID] = byID
	}
	copyCall := *call
	byID[call.ID] = &copyCall
	return nil
}

// Mutate applies fn to the stored call under the store's write lock, so
// concurrent mutations cannot interleave. The returned call is a copy.
func (s *InMemoryStore) Mutate(_ context.Context, tenantID id.TenantID, callID id.CallID, fn func(call *Call) error) (*Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[tenantID][callID]
	if !ok {
		return nil, ErrNotFound
	}
	updated := *call
	if err := fn(&updated); err != nil {
		return nil, err
	}
	stored := updated
	s.calls[tenantID][callID] = &stored
	return &updated, nil
}

func (s *InMemoryStore) Stats(_ context.Context, tenantID id.TenantID) (total, unresolved int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, call := range s.calls[tenantID] {
		total++
		if !call.Resolved {
			unresolved++
		}
	}
	return total, unresolved, nil
}
