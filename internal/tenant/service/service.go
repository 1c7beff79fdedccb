package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"repairradar/internal/tenant/models"
	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
)

type TenantStore interface {
	CreateIfNameAvailable(ctx context.Context, t *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	Count(ctx context.Context) (int, error)
}

type ConfigStore interface {
	Find(ctx context.Context, tenantID id.TenantID) (*models.ModuleConfig, error)
	Save(ctx context.Context, cfg *models.ModuleConfig) error
	Mutate(ctx context.Context, tenantID id.TenantID, fn func(cfg *models.ModuleConfig)) (*models.ModuleConfig, error)
}

// Notifier signals that a tenant's dashboard should be recomputed. Module
// config changes alter the active module set, so they trigger a refresh the
// same way domain mutations do.
type Notifier interface {
	Publish(tenantID id.TenantID)
}

// Service orchestrates tenant and module-configuration management.
type Service struct {
	tenants  TenantStore
	configs  ConfigStore
	notifier Notifier
	logger   *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// SetNotifier binds the notifier after construction. The live broker depends
// on the dashboard service, which depends on this service's config provider,
// so the notifier can only be attached once the broker exists.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func New(tenants TenantStore, configs ConfigStore, opts ...Option) *Service {
	s := &Service{tenants: tenants, configs: configs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateTenant(ctx context.Context, name string) (*models.Tenant, error) {
	t, err := models.NewTenant(id.TenantID(uuid.New()), name, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.tenants.CreateIfNameAvailable(ctx, t); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "tenant created", "tenant_id", t.ID, "name", t.Name)
	}
	return t, nil
}

func (s *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	t, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}
	return t, nil
}

// GetModuleConfig returns the tenant's module configuration, or nil when none
// has been written yet. Absence is not an error: the dashboard renders with
// zero modules.
func (s *Service) GetModuleConfig(ctx context.Context, tenantID id.TenantID) (*models.ModuleConfig, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	cfg, err := s.configs.Find(ctx, tenantID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load module config")
	}
	return cfg, nil
}

// SetModuleConfig replaces the tenant's module map. Unknown module keys are
// stored untouched; the activation resolver drops them when reading.
func (s *Service) SetModuleConfig(ctx context.Context, tenantID id.TenantID, modules map[string]bool) (*models.ModuleConfig, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	if _, err := s.tenants.FindByID(ctx, tenantID); err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}

	cfg := &models.ModuleConfig{TenantID: tenantID, Modules: modules, UpdatedAt: time.Now()}
	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save module config")
	}

	s.notifyConfigChanged(ctx, tenantID)
	return cfg, nil
}

// EnableModule switches a single module on for the tenant.
func (s *Service) EnableModule(ctx context.Context, tenantID id.TenantID, key string) (*models.ModuleConfig, error) {
	return s.setModule(ctx, tenantID, key, true)
}

// DisableModule switches a single module off for the tenant.
func (s *Service) DisableModule(ctx context.Context, tenantID id.TenantID, key string) (*models.ModuleConfig, error) {
	return s.setModule(ctx, tenantID, key, false)
}

func (s *Service) setModule(ctx context.Context, tenantID id.TenantID, key string, enabled bool) (*models.ModuleConfig, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	if key == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "module key is required")
	}
	if _, err := s.tenants.FindByID(ctx, tenantID); err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}

	cfg, err := s.configs.Mutate(ctx, tenantID, func(cfg *models.ModuleConfig) {
		cfg.Modules[key] = enabled
		cfg.UpdatedAt = time.Now()
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update module config")
	}

	s.notifyConfigChanged(ctx, tenantID)
	return cfg, nil
}

func (s *Service) notifyConfigChanged(ctx context.Context, tenantID id.TenantID) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "module config changed", "tenant_id", tenantID)
	}
	if s.notifier != nil {
		s.notifier.Publish(tenantID)
	}
}

func wrapTenantErr(err error, action string) error {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}
