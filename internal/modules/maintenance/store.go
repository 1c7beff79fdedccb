package maintenance

import (
	"context"
	"errors"
	"sync"
	"time"

	id "repairradar/pkg/domain"
)

// ErrNotFound is returned when a schedule does not exist for the tenant.
var ErrNotFound = errors.New("schedule not found")

// InMemoryStore keeps schedules partitioned by tenant.
type InMemoryStore struct {
	mu        sync.RWMutex
	schedules map[id.TenantID]map[id.ScheduleID]*Schedule
}

func NewStore() *InMemoryStore {
	return &InMemoryStore{schedules: make(map[id.TenantID]map[id.ScheduleID]*Schedule)}
}

func (s *InMemoryStore) Save(_ context.Context, schedule *Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.schedules[schedule.TenantID]
	if !ok {
		byID = make(map[id.ScheduleID]*Schedule)
		s.schedules[schedule.TenantID] = byID
	}
	copySchedule := *schedule
	byID[schedule.ID] = &copySchedule
	return nil
}

// Mutate applies fn to the stored schedule under the store's write lock, so
// concurrent mutations cannot interleave. The returned schedule is a copy.
func (s *InMemoryStore) Mutate(_ context.Context, tenantID id.TenantID, scheduleID id.ScheduleID, fn func(schedule *Schedule) error) (*Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule, ok := s.schedules[tenantID][scheduleID]
	if !ok {
		return nil, ErrNotFound
	}
	updated := *schedule
	if err := fn(&updated); err != nil {
		return nil, err
	}
	stored := updated
	s.schedules[tenantID][scheduleID] = &stored
	return &updated, nil
}

func (s *InMemoryStore) Stats(_ context.Context, tenantID id.TenantID, now time.Time) (total, upcoming int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, schedule := range s.schedules[tenantID] {
		total++
		if schedule.NextRun.After(now) {
			upcoming++
		}
	}
	return total, upcoming, nil
}
