package store

import (
	"context"
	"strings"
	"sync"

	"repairradar/internal/tenant/models"
	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
	keyedsync "repairradar/pkg/platform/sync"
)

// ErrNotFound is returned when a record cannot be located.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

// InMemoryTenantStore stores tenants in memory. Suitable for the demo
// environment and tests; a persistent store sits behind the same interface.
type InMemoryTenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*models.Tenant
	nameIdx map[string]string
}

func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		tenants: make(map[string]*models.Tenant),
		nameIdx: make(map[string]string),
	}
}

// CreateIfNameAvailable inserts the tenant unless the name is taken.
func (s *InMemoryTenantStore) CreateIfNameAvailable(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nameKey := strings.ToLower(t.Name)
	if _, taken := s.nameIdx[nameKey]; taken {
		return dErrors.New(dErrors.CodeConflict, "tenant name already in use")
	}
	key := t.ID.String()
	stored := *t
	s.tenants[key] = &stored
	s.nameIdx[nameKey] = key
	return nil
}

// FindByID returns a copy; callers cannot mutate store state through it.
func (s *InMemoryTenantStore) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID.String()]; ok {
		copyTenant := *t
		return &copyTenant, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryTenantStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants), nil
}

// InMemoryConfigStore stores per-tenant module configurations. Writes for the
// same tenant are serialized with a sharded mutex so concurrent enable/disable
// calls cannot interleave their read-modify-write cycles, while different
// tenants proceed independently.
type InMemoryConfigStore struct {
	mu      sync.RWMutex
	configs map[string]*models.ModuleConfig
	writes  *keyedsync.ShardedMutex
}

func NewInMemoryConfigStore() *InMemoryConfigStore {
	return &InMemoryConfigStore{
		configs: make(map[string]*models.ModuleConfig),
		writes:  keyedsync.NewShardedMutex(),
	}
}

// Find returns the tenant's module config. Absence is reported with
// ErrNotFound; callers above the activation resolver treat it as "no modules
// enabled", never as a failure.
func (s *InMemoryConfigStore) Find(_ context.Context, tenantID id.TenantID) (*models.ModuleConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.configs[tenantID.String()]; ok {
		return c.Clone(), nil
	}
	return nil, ErrNotFound
}

// Save replaces the tenant's module config.
func (s *InMemoryConfigStore) Save(_ context.Context, cfg *models.ModuleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.TenantID.String()] = cfg.Clone()
	return nil
}

// Mutate applies fn to the tenant's current config (or a fresh one) under the
// tenant's write lock and stores the result.
func (s *InMemoryConfigStore) Mutate(ctx context.Context, tenantID id.TenantID, fn func(cfg *models.ModuleConfig)) (*models.ModuleConfig, error) {
	var out *models.ModuleConfig
	var err error
	s.writes.WithLock(tenantID.String(), func() {
		cfg, findErr := s.Find(ctx, tenantID)
		if findErr != nil {
			cfg = &models.ModuleConfig{TenantID: tenantID, Modules: make(map[string]bool)}
		}
		if cfg.Modules == nil {
			cfg.Modules = make(map[string]bool)
		}
		fn(cfg)
		err = s.Save(ctx, cfg)
		out = cfg
	})
	return out, err
}
