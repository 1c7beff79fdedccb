// Package maintenance manages preventative maintenance schedules and
// contributes their summary to the dashboard.
package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"repairradar/internal/dashboard/models"
	"repairradar/internal/events"
	"repairradar/internal/registry"
	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
)

// ModuleKey identifies this module in activation configs and snapshots.
const ModuleKey registry.Key = "preventative-maintenance"

// Schedule is a recurring maintenance task. NextRun advances by the interval
// each time a run is completed.
type Schedule struct {
	ID           id.ScheduleID `json:"id"`
	TenantID     id.TenantID   `json:"tenant_id"`
	Name         string        `json:"name"`
	AssetID      id.AssetID    `json:"asset_id,omitempty"`
	IntervalDays int           `json:"interval_days"`
	NextRun      time.Time     `json:"next_run"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Store defines the persistence interface for schedules. Mutate applies a
// change atomically and returns ErrNotFound when the schedule does not exist.
type Store interface {
	Save(ctx context.Context, schedule *Schedule) error
	Mutate(ctx context.Context, tenantID id.TenantID, scheduleID id.ScheduleID, fn func(schedule *Schedule) error) (*Schedule, error)
	Stats(ctx context.Context, tenantID id.TenantID, now time.Time) (total, upcoming int, err error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEmitter(emitter events.Emitter) Option {
	return func(s *Service) { s.emitter = emitter }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns schedule lifecycle operations and the dashboard summary.
type Service struct {
	store   Store
	emitter events.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSchedule registers a recurring maintenance task. The first run is
// one interval from now unless an explicit next run is given.
func (s *Service) CreateSchedule(ctx context.Context, tenantID id.TenantID, name string, assetID id.AssetID, intervalDays int, nextRun *time.Time) (*Schedule, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "schedule name cannot be empty")
	}
	if intervalDays <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "interval must be at least one day")
	}

	now := s.now().UTC()
	first := now.AddDate(0, 0, intervalDays)
	if nextRun != nil {
		first = nextRun.UTC()
	}

	schedule := &Schedule{
		ID:           id.ScheduleID(uuid.New()),
		TenantID:     tenantID,
		Name:         name,
		AssetID:      assetID,
		IntervalDays: intervalDays,
		NextRun:      first,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Save(ctx, schedule); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save schedule")
	}

	s.emit(ctx, tenantID, "maintenance.scheduled")
	return schedule, nil
}

// CompleteRun records a finished run and advances NextRun by the interval.
func (s *Service) CompleteRun(ctx context.Context, tenantID id.TenantID, scheduleID id.ScheduleID) (*Schedule, error) {
	schedule, err := s.store.Mutate(ctx, tenantID, scheduleID, func(schedule *Schedule) error {
		now := s.now().UTC()
		schedule.NextRun = now.AddDate(0, 0, schedule.IntervalDays)
		schedule.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "schedule not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "complete schedule run")
	}

	s.emit(ctx, tenantID, "maintenance.completed")
	return schedule, nil
}

// Summary produces the dashboard metrics for this module.
func (s *Service) Summary(ctx context.Context, tenantID id.TenantID) (models.ModuleMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, upcoming, err := s.store.Stats(ctx, tenantID, s.now().UTC())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count schedules")
	}
	return models.ModuleMetrics{
		"total":    float64(total),
		"upcoming": float64(upcoming),
		"records":  float64(total),
	}, nil
}

// Descriptor returns this module's dashboard registration.
func (s *Service) Descriptor() registry.Descriptor {
	return registry.Descriptor{
		Key:           ModuleKey,
		DisplayName:   "Preventative Maintenance",
		GlobalMetrics: []string{"records"},
		Fetch:         s.Summary,
	}
}

func (s *Service) emit(ctx context.Context, tenantID id.TenantID, kind string) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, events.NewEvent(tenantID, kind))
}
