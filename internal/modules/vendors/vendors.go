// Package vendors keeps the tenant's vendor directory.
package vendors

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"repairradar/internal/dashboard/models"
	"repairradar/internal/events"
	"repairradar/internal/registry"
	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
)

// ModuleKey identifies this module in activation configs and snapshots.
const ModuleKey registry.Key = "vendors"

// Vendor is an external service provider or supplier.
type Vendor struct {
	ID        id.VendorID `json:"id"`
	TenantID  id.TenantID `json:"tenant_id"`
	Name      string      `json:"name"`
	Contact   string      `json:"contact,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// InMemoryStore keeps vendors partitioned by tenant.
type InMemoryStore struct {
	mu      sync.RWMutex
	vendors map[id.TenantID][]*Vendor
}

func NewStore() *InMemoryStore {
	return &InMemoryStore{vendors: make(map[id.TenantID][]*Vendor)}
}

func (s *InMemoryStore) Save(_ context.Context, vendor *Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyVendor := *vendor
	s.vendors[vendor.TenantID] = append(s.vendors[vendor.TenantID], &copyVendor)
	return nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.vendors[tenantID]
	out := make([]*Vendor, 0, len(list))
	for _, vendor := range list {
		copyVendor := *vendor
		out = append(out, &copyVendor)
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vendors[tenantID]), nil
}

// Store defines the persistence interface for vendors.
type Store interface {
	Save(ctx context.Context, vendor *Vendor) error
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Vendor, error)
	Count(ctx context.Context, tenantID id.TenantID) (int, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEmitter(emitter events.Emitter) Option {
	return func(s *Service) { s.emitter = emitter }
}

// Service owns the vendor directory and its dashboard summary.
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

// AddVendor registers a vendor in the directory.
func (s *Service) AddVendor(ctx context.Context, tenantID id.TenantID, name, contact string) (*Vendor, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "vendor name cannot be empty")
	}

	vendor := &Vendor{
		ID:        id.VendorID(uuid.New()),
		TenantID:  tenantID,
		Name:      name,
		Contact:   contact,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Save(ctx, vendor); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save vendor")
	}

	s.emit(ctx, tenantID, "vendor.added")
	return vendor, nil
}

// ListVendors returns all vendors for the tenant.
func (s *Service) ListVendors(ctx context.Context, tenantID id.TenantID) ([]*Vendor, error) {
	list, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list vendors")
	}
	return list, nil
}

// Summary produces the dashboard metrics for this module.
func (s *Service) Summary(ctx context.Context, tenantID id.TenantID) (models.ModuleMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count vendors")
	}
	return models.ModuleMetrics{
		"total":   float64(total),
		"records": float64(total),
	}, nil
}

// Descriptor returns this module's dashboard registration.
func (s *Service) Descriptor() registry.Descriptor {
	return registry.Descriptor{
		Key:           ModuleKey,
		DisplayName:   "Vendors",
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
