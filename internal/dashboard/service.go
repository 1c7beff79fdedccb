package dashboard

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"repairradar/internal/activation"
	"repairradar/internal/dashboard/models"
	"repairradar/internal/platform/metrics"
	"repairradar/internal/registry"
	id "repairradar/pkg/domain"
)

// SnapshotCache stores the most recent snapshot per tenant so a fresh
// subscriber can be served without a full aggregation pass. Nil caches and
// cache failures are tolerated; the cache is an optimization, never a source
// of truth.
type SnapshotCache interface {
	Store(ctx context.Context, snap *models.Snapshot) error
	Latest(ctx context.Context, tenantID id.TenantID) (*models.Snapshot, error)
}

// ModuleInfo is the administrative view of one registered module.
type ModuleInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
}

// Service is the dashboard facade: it resolves a tenant's activation, runs
// the engine, and dedupes concurrent pulls for the same tenant.
type Service struct {
	registry *registry.Registry
	resolver *activation.Resolver
	engine   *Engine
	cache    SnapshotCache
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// group collapses concurrent GetSnapshot calls per tenant into a single
	// aggregation pass shared by all callers.
	group singleflight.Group
}

type ServiceOption func(s *Service)

func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithSnapshotCache(c SnapshotCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

func NewService(reg *registry.Registry, resolver *activation.Resolver, engine *Engine, opts ...ServiceOption) *Service {
	s := &Service{registry: reg, resolver: resolver, engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAvailableModules returns all registered modules in canonical order.
func (s *Service) ListAvailableModules() []ModuleInfo {
	keys := s.registry.Keys()
	out := make([]ModuleInfo, 0, len(keys))
	for _, key := range keys {
		d, ok := s.registry.Resolve(key)
		if !ok {
			continue
		}
		out = append(out, ModuleInfo{Key: string(d.Key), DisplayName: d.DisplayName})
	}
	return out
}

// Snapshot runs a fresh aggregation pass for the tenant. Concurrent calls
// for the same tenant share one pass. Aggregation itself cannot fail: module
// failures are recorded inside the snapshot.
func (s *Service) Snapshot(ctx context.Context, tenantID id.TenantID) (*models.Snapshot, error) {
	return s.snapshot(ctx, tenantID, "pull")
}

// Recompute is the event-triggered variant of Snapshot, used by the live
// update channel after a domain mutation.
func (s *Service) Recompute(ctx context.Context, tenantID id.TenantID) (*models.Snapshot, error) {
	return s.snapshot(ctx, tenantID, "event")
}

func (s *Service) snapshot(ctx context.Context, tenantID id.TenantID, trigger string) (*models.Snapshot, error) {
	// The pass is shared by every caller that joins the flight, so it must
	// not die with whichever caller entered first: a cancelled pull would
	// otherwise hand an all-failed snapshot to the subscribers and the cache.
	// The engine's fetch timeout still bounds the detached pass.
	passCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(tenantID.String(), func() (any, error) {
		return s.aggregate(passCtx, tenantID, trigger), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Snapshot), nil
}

// Latest serves the cached snapshot when available, falling back to a fresh
// aggregation pass. Used for the immediate snapshot on subscribe.
func (s *Service) Latest(ctx context.Context, tenantID id.TenantID) (*models.Snapshot, error) {
	if s.cache != nil {
		snap, err := s.cache.Latest(ctx, tenantID)
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "snapshot cache read failed",
				"tenant_id", tenantID,
				"error", err,
			)
		}
		if snap != nil {
			return snap, nil
		}
	}
	return s.Snapshot(ctx, tenantID)
}

func (s *Service) aggregate(ctx context.Context, tenantID id.TenantID, trigger string) *models.Snapshot {
	active := s.resolver.ResolveTenant(ctx, tenantID)
	snap := s.engine.Aggregate(ctx, tenantID, active)

	if s.metrics != nil {
		s.metrics.IncrementAggregations(trigger)
	}
	if s.cache != nil {
		if err := s.cache.Store(ctx, snap); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "snapshot cache write failed",
				"tenant_id", tenantID,
				"error", err,
			)
		}
	}
	return snap
}
