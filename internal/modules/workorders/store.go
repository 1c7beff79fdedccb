package workorders

import (
	"context"
	"errors"
	"sync"
	"time"

	id "repairradar/pkg/domain"
)

// ErrNotFound is returned when a work order does not exist for the tenant.
var ErrNotFound = errors.New("work order not found")

// InMemoryStore keeps work orders partitioned by tenant.
type InMemoryStore struct {
	mu     sync.RWMutex
	orders map[id.TenantID]map[id.WorkOrderID]*WorkOrder
}

func NewStore() *InMemoryStore {
	return &InMemoryStore{orders: make(map[id.TenantID]map[id.WorkOrderID]*WorkOrder)}
}

func (s *InMemoryStore) Save(_ context.Context, order *WorkOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.orders[order.TenantID]
	if !ok {
		byID = make(map[id.WorkOrderID]*WorkOrder)
		s.orders[order.TenantID] = byID
	}
	copyOrder := *order
	byID[order.ID] = &copyOrder
	return nil
}

// Mutate applies fn to the stored order under the store's write lock. The
// status check and the write cannot interleave with another mutation. If fn
// returns an error nothing is written. The returned order is a copy.
func (s *InMemoryStore) Mutate(_ context.Context, tenantID id.TenantID, orderID id.WorkOrderID, fn func(order *WorkOrder) error) (*WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[tenantID][orderID]
	if !ok {
		return nil, ErrNotFound
	}
	updated := *order
	if err := fn(&updated); err != nil {
		return nil, err
	}
	stored := updated
	s.orders[tenantID][orderID] = &stored
	return &updated, nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.orders[tenantID]
	out := make([]*WorkOrder, 0, len(byID))
	for _, order := range byID {
		copyOrder := *order
		out = append(out, &copyOrder)
	}
	return out, nil
}

// Stats counts total, open (not completed) and overdue orders in one pass.
func (s *InMemoryStore) Stats(_ context.Context, tenantID id.TenantID, now time.Time) (total, open, overdue int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, order := range s.orders[tenantID] {
		total++
		if order.Status != StatusCompleted {
			open++
		}
		if order.Overdue(now) {
			overdue++
		}
	}
	return total, open, overdue, nil
}
