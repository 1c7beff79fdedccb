package assets

import (
	"context"
	"errors"
	"sync"

	id "repairradar/pkg/domain"
)

// ErrNotFound is returned when an asset does not exist for the tenant.
var ErrNotFound = errors.New("asset not found")

// InMemoryStore keeps assets partitioned by tenant. All returned records are
// copies; callers cannot mutate store state through them.
type InMemoryStore struct {
	mu     sync.RWMutex
	assets map[id.TenantID]map[id.AssetID]*Asset
}

func NewStore() *InMemoryStore {
	return &InMemoryStore{assets: make(map[id.TenantID]map[id.AssetID]*Asset)}
}

func (s *InMemoryStore) Save(_ context.Context, asset *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.assets[asset.TenantID]
	if !ok {
		byID = make(map[id.AssetID]*Asset)
		s.assets[asset.TenantID] = byID
	}
	copyAsset := *asset
	byID[asset.ID] = &copyAsset
	return nil
}

// Mutate applies fn to the stored asset under the store's write lock, so
// concurrent mutations cannot interleave. The returned asset is a copy.
func (s *InMemoryStore) Mutate(_ context.Context, tenantID id.TenantID, assetID id.AssetID, fn func(asset *Asset) error) (*Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[tenantID][assetID]
	if !ok {
		return nil, ErrNotFound
	}
	updated := *asset
	if err := fn(&updated); err != nil {
		return nil, err
	}
	stored := updated
	s.assets[tenantID][assetID] = &stored
	return &updated, nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.assets[tenantID]
	out := make([]*Asset, 0, len(byID))
	for _, asset := range byID {
		copyAsset := *asset
		out = append(out, &copyAsset)
	}
	return out, nil
}

// CountByStatus returns the total number of assets for the tenant and how
// many of them are in the given status, in one pass.
func (s *InMemoryStore) CountByStatus(_ context.Context, tenantID id.TenantID, status Status) (total, matching int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, asset := range s.assets[tenantID] {
		total++
		if asset.Status == status {
			matching++
		}
	}
	return total, matching, nil
}
