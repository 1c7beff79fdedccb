// Package parts tracks spare part inventory and contributes the stock
// summary to the dashboard.
package parts

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
const ModuleKey registry.Key = "parts"

const defaultLowStockThreshold = 10

// Part is one inventory line for a tenant.
type Part struct {
	ID        id.PartID   `json:"id"`
	TenantID  id.TenantID `json:"tenant_id"`
	Name      string      `json:"name"`
	SKU       string      `json:"sku,omitempty"`
	Quantity  int         `json:"quantity"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Store defines the persistence interface for parts. Mutate applies a change
// atomically and returns ErrNotFound when the part does not exist.
type Store interface {
	Save(ctx context.Context, part *Part) error
	Mutate(ctx context.Context, tenantID id.TenantID, partID id.PartID, fn func(part *Part) error) (*Part, error)
	Stats(ctx context.Context, tenantID id.TenantID, lowStockBelow int) (total, lowStock int, err error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEmitter(emitter events.Emitter) Option {
	return func(s *Service) { s.emitter = emitter }
}

// WithLowStockThreshold sets the quantity under which a part counts as low
// stock. Non-positive values keep the default.
func WithLowStockThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lowStockThreshold = n
		}
	}
}

// Service owns inventory operations and the dashboard summary.
type Service struct {
	store             Store
	emitter           events.Emitter
	logger            *slog.Logger
	lowStockThreshold int
	now               func() time.Time
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		lowStockThreshold: defaultLowStockThreshold,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddPart registers a new inventory line.
func (s *Service) AddPart(ctx context.Context, tenantID id.TenantID, name, sku string, quantity int) (*Part, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "part name cannot be empty")
	}
	if quantity < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "quantity cannot be negative")
	}

	now := s.now().UTC()
	part := &Part{
		ID:        id.PartID(uuid.New()),
		TenantID:  tenantID,
		Name:      name,
		SKU:       sku,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, part); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save part")
	}

	s.emit(ctx, tenantID, "part.added")
	return part, nil
}

// AdjustQuantity applies a delta to a part's stock level. The resulting
// quantity must not go negative. The check and the write happen atomically in
// the store, so concurrent adjustments cannot lose each other's updates.
func (s *Service) AdjustQuantity(ctx context.Context, tenantID id.TenantID, partID id.PartID, delta int) (*Part, error) {
	part, err := s.store.Mutate(ctx, tenantID, partID, func(part *Part) error {
		if part.Quantity+delta < 0 {
			return dErrors.New(dErrors.CodeValidation, "quantity cannot go negative")
		}
		part.Quantity += delta
		part.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "part not found")
		case dErrors.HasCode(err, dErrors.CodeValidation):
			return nil, err
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "adjust part quantity")
		}
	}

	s.emit(ctx, tenantID, "part.quantity_adjusted")
	return part, nil
}

// Summary produces the dashboard metrics for this module.
func (s *Service) Summary(ctx context.Context, tenantID id.TenantID) (models.ModuleMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, lowStock, err := s.store.Stats(ctx, tenantID, s.lowStockThreshold)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count parts")
	}
	return models.ModuleMetrics{
		"total":     float64(total),
		"low_stock": float64(lowStock),
		"records":   float64(total),
	}, nil
}

// Descriptor returns this module's dashboard registration.
func (s *Service) Descriptor() registry.Descriptor {
	return registry.Descriptor{
		Key:           ModuleKey,
		DisplayName:   "Parts",
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
