// Package assets tracks tenant equipment and contributes the asset summary
// to the dashboard.
package assets

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
const ModuleKey registry.Key = "assets"

// Store defines the persistence interface for assets.
// Error Contract:
// - Mutate returns ErrNotFound when no asset exists for the tenant
// - Other methods return nil on success or wrapped errors on failure
type Store interface {
	Save(ctx context.Context, asset *Asset) error
	Mutate(ctx context.Context, tenantID id.TenantID, assetID id.AssetID, fn func(asset *Asset) error) (*Asset, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Asset, error)
	CountByStatus(ctx context.Context, tenantID id.TenantID, status Status) (total, matching int, err error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEmitter(emitter events.Emitter) Option {
	return func(s *Service) { s.emitter = emitter }
}

// Service owns asset lifecycle operations and the dashboard summary.
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

// CreateAsset registers a new asset. Status defaults to operational.
func (s *Service) CreateAsset(ctx context.Context, tenantID id.TenantID, name, location string, status Status) (*Asset, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if status == "" {
		status = StatusOperational
	}
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid asset status: "+string(status))
	}

	now := s.now().UTC()
	asset := &Asset{
		ID:        id.AssetID(uuid.New()),
		TenantID:  tenantID,
		Name:      name,
		Status:    status,
		Location:  location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, asset); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save asset")
	}

	s.emit(ctx, tenantID, "asset.created")
	return asset, nil
}

// UpdateStatus transitions an asset to a new status.
func (s *Service) UpdateStatus(ctx context.Context, tenantID id.TenantID, assetID id.AssetID, status Status) (*Asset, error) {
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid asset status: "+string(status))
	}

	asset, err := s.store.Mutate(ctx, tenantID, assetID, func(asset *Asset) error {
		asset.Status = status
		asset.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update asset status")
	}

	s.emit(ctx, tenantID, "asset.status_changed")
	return asset, nil
}

// ListAssets returns all assets for the tenant.
func (s *Service) ListAssets(ctx context.Context, tenantID id.TenantID) ([]*Asset, error) {
	list, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list assets")
	}
	return list, nil
}

// Summary produces the dashboard metrics for this module.
func (s *Service) Summary(ctx context.Context, tenantID id.TenantID) (models.ModuleMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, down, err := s.store.CountByStatus(ctx, tenantID, StatusDown)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count assets")
	}
	return models.ModuleMetrics{
		"total":   float64(total),
		"down":    float64(down),
		"records": float64(total),
	}, nil
}

// Descriptor returns this module's dashboard registration.
func (s *Service) Descriptor() registry.Descriptor {
	return registry.Descriptor{
		Key:           ModuleKey,
		DisplayName:   "Assets",
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
