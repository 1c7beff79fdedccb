// Package activation projects a tenant's module configuration against the
// global module registry.
package activation

import (
	"context"
	"log/slog"

	"repairradar/internal/registry"
	"repairradar/internal/tenant/models"
	id "repairradar/pkg/domain"
)

// ConfigProvider reads a tenant's module configuration. A nil config (and
// any read failure) means "no modules enabled" - the dashboard must render
// with zero modules rather than error.
type ConfigProvider interface {
	GetModuleConfig(ctx context.Context, tenantID id.TenantID) (*models.ModuleConfig, error)
}

// Resolver computes the ordered set of active modules for a tenant.
type Resolver struct {
	registry *registry.Registry
	configs  ConfigProvider
	logger   *slog.Logger
}

func New(reg *registry.Registry, configs ConfigProvider, logger *slog.Logger) *Resolver {
	return &Resolver{registry: reg, configs: configs, logger: logger}
}

// Resolve returns the tenant's active descriptors as a subsequence of the
// canonical registry order. Keys the tenant enabled but the registry does not
// know are dropped silently: a config authored against a future module set
// must degrade gracefully.
func (r *Resolver) Resolve(cfg *models.ModuleConfig) []registry.Descriptor {
	active := make([]registry.Descriptor, 0, r.registry.Len())
	for _, key := range r.registry.Keys() {
		if !cfg.Enabled(string(key)) {
			continue
		}
		d, ok := r.registry.Resolve(key)
		if !ok {
			continue
		}
		active = append(active, d)
	}
	return active
}

// ResolveTenant loads the tenant's config and resolves it. Config absence or
// a provider failure degrades to an empty activation; only the degradation is
// logged, never surfaced.
func (r *Resolver) ResolveTenant(ctx context.Context, tenantID id.TenantID) []registry.Descriptor {
	cfg, err := r.configs.GetModuleConfig(ctx, tenantID)
	if err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "module config unavailable, rendering zero modules",
				"tenant_id", tenantID,
				"error", err,
			)
		}
		return nil
	}
	return r.Resolve(cfg)
}
