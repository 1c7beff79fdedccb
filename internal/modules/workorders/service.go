// Package workorders manages maintenance jobs and contributes the work order
// summary to the dashboard.
package workorders

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
const ModuleKey registry.Key = "work-orders"

// Store defines the persistence interface for work orders.
// Error Contract:
// - Mutate returns ErrNotFound when no work order exists for the tenant, or
//   fn's error unchanged when fn rejects the change
// - Other methods return nil on success or wrapped errors on failure
type Store interface {
	Save(ctx context.Context, order *WorkOrder) error
	Mutate(ctx context.Context, tenantID id.TenantID, orderID id.WorkOrderID, fn func(order *WorkOrder) error) (*WorkOrder, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*WorkOrder, error)
	Stats(ctx context.Context, tenantID id.TenantID, now time.Time) (total, open, overdue int, err error)
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

// Service owns the work order lifecycle and the dashboard summary.
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

// CreateWorkOrder opens a new work order. Priority defaults to medium.
func (s *Service) CreateWorkOrder(ctx context.Context, tenantID id.TenantID, title string, priority Priority, assetID id.AssetID, dueDate *time.Time) (*WorkOrder, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid priority: "+string(priority))
	}

	now := s.now().UTC()
	order := &WorkOrder{
		ID:        id.WorkOrderID(uuid.New()),
		TenantID:  tenantID,
		Title:     title,
		Status:    StatusOpen,
		Priority:  priority,
		AssetID:   assetID,
		DueDate:   dueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, order); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save work order")
	}

	s.emit(ctx, tenantID, "work_order.created")
	return order, nil
}

// UpdateStatus transitions a work order to a new status. Completed orders
// cannot be reopened; the check runs atomically with the write so a reopen
// racing a completion cannot slip through.
func (s *Service) UpdateStatus(ctx context.Context, tenantID id.TenantID, orderID id.WorkOrderID, status Status) (*WorkOrder, error) {
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid work order status: "+string(status))
	}

	order, err := s.store.Mutate(ctx, tenantID, orderID, func(order *WorkOrder) error {
		if order.Status == StatusCompleted && status != StatusCompleted {
			return dErrors.New(dErrors.CodeConflict, "completed work order cannot be reopened")
		}
		order.Status = status
		order.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "work order not found")
		case dErrors.HasCode(err, dErrors.CodeConflict):
			return nil, err
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update work order")
		}
	}

	s.emit(ctx, tenantID, "work_order.status_changed")
	return order, nil
}

// ListWorkOrders returns all work orders for the tenant.
func (s *Service) ListWorkOrders(ctx context.Context, tenantID id.TenantID) ([]*WorkOrder, error) {
	list, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list work orders")
	}
	return list, nil
}

// Summary produces the dashboard metrics for this module.
func (s *Service) Summary(ctx context.Context, tenantID id.TenantID) (models.ModuleMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, open, overdue, err := s.store.Stats(ctx, tenantID, s.now().UTC())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count work orders")
	}
	return models.ModuleMetrics{
		"total":   float64(total),
		"open":    float64(open),
		"overdue": float64(overdue),
		"records": float64(total),
	}, nil
}

// Descriptor returns this module's dashboard registration.
func (s *Service) Descriptor() registry.Descriptor {
	return registry.Descriptor{
		Key:           ModuleKey,
		DisplayName:   "Work Orders",
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
