// Package seeder populates the in-memory stores with demo data so a fresh
// process has a tenant with a working dashboard.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"repairradar/internal/modules/assets"
	"repairradar/internal/modules/calls"
	"repairradar/internal/modules/workorders"
	tenantmodels "repairradar/internal/tenant/models"
	tenantservice "repairradar/internal/tenant/service"
	id "repairradar/pkg/domain"
)

// Seeder creates a demo tenant with the default module set enabled and a few
// records in each enabled module.
type Seeder struct {
	tenants    *tenantservice.Service
	assets     *assets.Service
	workOrders *workorders.Service
	calls      *calls.Service
	logger     *slog.Logger
}

func New(tenants *tenantservice.Service, assetSvc *assets.Service, workOrderSvc *workorders.Service, callSvc *calls.Service, logger *slog.Logger) *Seeder {
	return &Seeder{
		tenants:    tenants,
		assets:     assetSvc,
		workOrders: workOrderSvc,
		calls:      callSvc,
		logger:     logger,
	}
}

// SeedAll creates the demo tenant and its records. The default activation
// enables calls, assets and work orders; the remaining modules stay off until
// an admin turns them on.
func (s *Seeder) SeedAll(ctx context.Context) (*tenantmodels.Tenant, error) {
	s.logger.Info("seeding demo data...")

	tenant, err := s.tenants.CreateTenant(ctx, "Demo Facilities")
	if err != nil {
		return nil, fmt.Errorf("failed to seed tenant: %w", err)
	}

	_, err = s.tenants.SetModuleConfig(ctx, tenant.ID, map[string]bool{
		"calls":       true,
		"assets":      true,
		"work-orders": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed module config: %w", err)
	}

	if err := s.seedAssets(ctx, tenant.ID); err != nil {
		return nil, err
	}
	if err := s.seedWorkOrders(ctx, tenant.ID); err != nil {
		return nil, err
	}
	if err := s.seedCalls(ctx, tenant.ID); err != nil {
		return nil, err
	}

	s.logger.Info("demo data seeded", "tenant_id", tenant.ID)
	return tenant, nil
}

func (s *Seeder) seedAssets(ctx context.Context, tenantID id.TenantID) error {
	demo := []struct {
		name     string
		location string
		status   assets.Status
	}{
		{"Boiler 1", "Basement", assets.StatusOperational},
		{"Elevator A", "Lobby", assets.StatusDown},
		{"HVAC Unit 3", "Roof", assets.StatusMaintenance},
	}
	for _, a := range demo {
		if _, err := s.assets.CreateAsset(ctx, tenantID, a.name, a.location, a.status); err != nil {
			return fmt.Errorf("failed to seed assets: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedWorkOrders(ctx context.Context, tenantID id.TenantID) error {
	demo := []struct {
		title    string
		priority workorders.Priority
	}{
		{"Repair elevator drive", workorders.PriorityHigh},
		{"Quarterly HVAC inspection", workorders.PriorityMedium},
	}
	for _, w := range demo {
		if _, err := s.workOrders.CreateWorkOrder(ctx, tenantID, w.title, w.priority, id.AssetID{}, nil); err != nil {
			return fmt.Errorf("failed to seed work orders: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedCalls(ctx context.Context, tenantID id.TenantID) error {
	if _, err := s.calls.LogCall(ctx, tenantID, "Elevator A stuck between floors", "Front desk"); err != nil {
		return fmt.Errorf("failed to seed calls: %w", err)
	}
	return nil
}
